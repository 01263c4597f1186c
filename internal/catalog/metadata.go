// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package catalog

import (
	"strconv"
	"strings"

	"github.com/tomtom215/reelsense/internal/recommend"
)

const (
	maxKeywords = 16
	maxCast     = 8
)

// certificationCountries is the lookup order for age ratings; the first
// entry of the list is used when none of them match.
var certificationCountries = []string{"RU", "US"}

type named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type crewMember struct {
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// details covers both movie and tv detail payloads.
type details struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	OriginalTitle    string  `json:"original_title"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	Runtime          int     `json:"runtime"`
	EpisodeRunTime   []int   `json:"episode_run_time"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	OriginalLanguage string  `json:"original_language"`
	Genres           []named `json:"genres"`

	ProductionCountries []struct {
		ISO31661 string `json:"iso_3166_1"`
	} `json:"production_countries"`
	OriginCountry []string `json:"origin_country"`

	BelongsToCollection *named `json:"belongs_to_collection"`

	Keywords struct {
		Keywords []named `json:"keywords"` // movie
		Results  []named `json:"results"`  // tv
	} `json:"keywords"`

	Credits struct {
		Cast []struct {
			Name  string `json:"name"`
			Order int    `json:"order"`
		} `json:"cast"`
		Crew []crewMember `json:"crew"`
	} `json:"credits"`

	ReleaseDates struct {
		Results []struct {
			ISO31661     string `json:"iso_3166_1"`
			ReleaseDates []struct {
				Certification string `json:"certification"`
			} `json:"release_dates"`
		} `json:"results"`
	} `json:"release_dates"`

	ContentRatings struct {
		Results []struct {
			ISO31661 string `json:"iso_3166_1"`
			Rating   string `json:"rating"`
		} `json:"results"`
	} `json:"content_ratings"`
}

func (d *details) toTitle(ct recommend.MediaType) *recommend.Title {
	t := &recommend.Title{
		ExternalID:       d.ID,
		MediaType:        ct,
		OriginalTitle:    firstNonEmpty(d.OriginalTitle, d.OriginalName, d.Title, d.Name),
		DisplayTitle:     firstNonEmpty(d.Title, d.Name),
		Overview:         d.Overview,
		Year:             yearOf(firstNonEmpty(d.ReleaseDate, d.FirstAirDate)),
		Runtime:          d.Runtime,
		OriginalLanguage: d.OriginalLanguage,
		Adult:            d.Adult,
	}
	if t.Runtime == 0 && len(d.EpisodeRunTime) > 0 {
		t.Runtime = d.EpisodeRunTime[0]
	}
	if d.VoteAverage > 0 {
		v := d.VoteAverage
		t.Rating = &v
	}
	if d.Popularity > 0 {
		p := d.Popularity
		t.Popularity = &p
	}
	for _, g := range d.Genres {
		if g.Name != "" {
			t.Genres = append(t.Genres, g.Name)
		}
	}
	for _, c := range d.ProductionCountries {
		if c.ISO31661 != "" {
			t.Countries = append(t.Countries, c.ISO31661)
		}
	}
	if len(t.Countries) == 0 {
		t.Countries = append(t.Countries, d.OriginCountry...)
	}
	t.Metadata = d.metadata(ct)
	return t
}

func (d *details) metadata(ct recommend.MediaType) *recommend.ExternalMetadata {
	m := &recommend.ExternalMetadata{}

	keywords := d.Keywords.Keywords
	if len(keywords) == 0 {
		keywords = d.Keywords.Results
	}
	for _, k := range keywords {
		if len(m.Keywords) == maxKeywords {
			break
		}
		if k.Name != "" {
			m.Keywords = append(m.Keywords, k.Name)
		}
	}

	if d.BelongsToCollection != nil {
		m.Collection = d.BelongsToCollection.Name
	}

	for _, c := range d.Credits.Cast {
		if len(m.Cast) == maxCast {
			break
		}
		if c.Name != "" {
			m.Cast = append(m.Cast, c.Name)
		}
	}
	for _, c := range d.Credits.Crew {
		if c.Name == "" {
			continue
		}
		if c.Job == "Director" {
			m.Directors = appendUnique(m.Directors, c.Name)
		}
		if c.Department == "Writing" {
			m.Writers = appendUnique(m.Writers, c.Name)
		}
	}

	if ct == recommend.MediaMovie {
		m.AgeRating = d.movieCertification()
	} else {
		m.AgeRating = d.tvCertification()
	}
	return m
}

func (d *details) movieCertification() string {
	results := d.ReleaseDates.Results
	if len(results) == 0 {
		return ""
	}
	idx := 0
	for _, country := range certificationCountries {
		if i := indexOfCountry(len(results), func(i int) string { return results[i].ISO31661 }, country); i >= 0 {
			idx = i
			break
		}
	}
	for _, rd := range results[idx].ReleaseDates {
		if c := strings.TrimSpace(rd.Certification); c != "" {
			return c
		}
	}
	return ""
}

func (d *details) tvCertification() string {
	results := d.ContentRatings.Results
	if len(results) == 0 {
		return ""
	}
	idx := 0
	for _, country := range certificationCountries {
		if i := indexOfCountry(len(results), func(i int) string { return results[i].ISO31661 }, country); i >= 0 {
			idx = i
			break
		}
	}
	return strings.TrimSpace(results[idx].Rating)
}

func indexOfCountry(n int, at func(int) string, country string) int {
	for i := 0; i < n; i++ {
		if at(i) == country {
			return i
		}
	}
	return -1
}

// yearOf returns the year of a YYYY-MM-DD date, or 0.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
