// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ProfileSchemaVersion is the current TasteProfile layout. Stored profiles
// with any other version are recomputed.
const ProfileSchemaVersion = 3

const maxAnchors = 6

var (
	lightMoodGenres = []string{"comedy", "animation", "family", "комедия", "анимация", "семейный"}
	heavyMoodGenres = []string{"drama", "thriller", "horror", "crime", "драма", "триллер", "ужасы", "криминал"}
)

// Anchor is a liked title fingerprinted for similarity scoring.
type Anchor struct {
	ID         string    `json:"id"`
	ExternalID int64     `json:"externalId"`
	MediaType  MediaType `json:"mediaType"`
	Genres     []string  `json:"genres"`
	People     []string  `json:"people"`
	Label      string    `json:"label"`
	Year       int       `json:"year,omitempty"`
}

// MoodVector accumulates light/heavy genre affinity.
type MoodVector struct {
	Light   float64 `json:"light"`
	Neutral float64 `json:"neutral"`
	Heavy   float64 `json:"heavy"`
}

// TasteProfile is the durable summary of a user's preferences.
type TasteProfile struct {
	SchemaVersion     int                `json:"schemaVersion"`
	GenrePositive     map[string]float64 `json:"genrePositive"`
	GenreNegative     map[string]float64 `json:"genreNegative"`
	Countries         map[string]float64 `json:"countries"`
	Decades           map[string]float64 `json:"decades"`
	Languages         map[string]float64 `json:"languages"`
	People            map[string]float64 `json:"people"`
	Keywords          map[string]float64 `json:"keywords"`
	Collections       map[string]float64 `json:"collections"`
	AgeRatings        map[string]float64 `json:"ageRatings"`
	RuntimeAvg        *float64           `json:"runtimeAvg"`
	RuntimeMedian     *float64           `json:"runtimeMedian"`
	FreshnessTilt     float64            `json:"freshnessTilt"`
	LanguageDiversity int                `json:"languageDiversity"`
	PreferredTypes    map[MediaType]bool `json:"preferredTypes"`
	Liked             map[string]bool    `json:"liked"`
	Disliked          map[string]bool    `json:"disliked"`
	Seen              map[string]bool    `json:"seen"`
	Anchors           []Anchor           `json:"anchors"`
	MoodVector        MoodVector         `json:"moodVector"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// EmptyProfile returns the zero-weight profile of a user with no history.
func EmptyProfile() *TasteProfile {
	return &TasteProfile{
		SchemaVersion:  ProfileSchemaVersion,
		GenrePositive:  map[string]float64{},
		GenreNegative:  map[string]float64{},
		Countries:      map[string]float64{},
		Decades:        map[string]float64{},
		Languages:      map[string]float64{},
		People:         map[string]float64{},
		Keywords:       map[string]float64{},
		Collections:    map[string]float64{},
		AgeRatings:     map[string]float64{},
		PreferredTypes: map[MediaType]bool{},
		Liked:          map[string]bool{},
		Disliked:       map[string]bool{},
		Seen:           map[string]bool{},
		Anchors:        []Anchor{},
		UpdatedAt:      time.Unix(0, 0).UTC(),
	}
}

// normalize replaces nil maps left by older or partial blobs.
func (p *TasteProfile) normalize() {
	for _, m := range []*map[string]float64{
		&p.GenrePositive, &p.GenreNegative, &p.Countries, &p.Decades, &p.Languages,
		&p.People, &p.Keywords, &p.Collections, &p.AgeRatings,
	} {
		if *m == nil {
			*m = map[string]float64{}
		}
	}
	for _, s := range []*map[string]bool{&p.Liked, &p.Disliked, &p.Seen} {
		if *s == nil {
			*s = map[string]bool{}
		}
	}
	if p.PreferredTypes == nil {
		p.PreferredTypes = map[MediaType]bool{}
	}
}

// BaseWeight returns the signed weight of an interaction before decay.
// A hard dislike is -3.0; a drop without explicit like/dislike is -1.2.
func BaseWeight(in Interaction) float64 {
	switch {
	case in.Liked:
		return 3.0
	case in.Disliked:
		return -3.0
	case in.Status == StatusDropped:
		return -1.2
	case in.Status == StatusWatched:
		return 1.6
	default:
		return 0.8
	}
}

// BuildProfile folds an interaction history, ordered by last interaction
// descending, into a TasteProfile. It never fails; an empty history yields
// EmptyProfile().
func BuildProfile(history []Interaction, cfg Config, now time.Time) *TasteProfile {
	p := EmptyProfile()
	if len(history) == 0 {
		return p
	}

	var runtimes []int
	yearSum, yearCount := 0, 0

	for _, in := range history {
		t := in.Title
		hardDisliked := !in.Liked && in.Disliked
		dropped := !in.Liked && !in.Disliked && in.Status == StatusDropped

		decay := 1.0
		if cfg.HalfLifeDays > 0 {
			days := now.Sub(in.LastInteraction).Hours() / 24
			decay = math.Pow(0.5, days/cfg.HalfLifeDays)
		}
		w := BaseWeight(in) * decay * cfg.sourceWeight(in.Source)

		if in.Liked {
			p.Liked[t.ID] = true
		}
		if hardDisliked || dropped {
			p.Disliked[t.ID] = true
		}
		p.Seen[t.ID] = true
		if t.MediaType != "" {
			p.PreferredTypes[t.MediaType] = true
		}

		for _, g := range t.Genres {
			switch {
			case hardDisliked:
				p.GenreNegative[g] += math.Abs(w)
			case dropped:
				p.GenreNegative[g] += math.Abs(w) * 0.4
			default:
				p.GenrePositive[g] += w
			}
			lg := strings.ToLower(g)
			if containsAny(lg, lightMoodGenres) {
				p.MoodVector.Light += w * 0.4
			}
			if containsAny(lg, heavyMoodGenres) {
				p.MoodVector.Heavy += w * 0.35
			}
		}
		for _, c := range t.Countries {
			p.Countries[c] += w * 0.7
		}
		if t.OriginalLanguage != "" {
			p.Languages[t.OriginalLanguage] += w * 0.5
		}
		if t.Year > 0 {
			p.Decades[DecadeKey(t.Year)] += w * 0.8
			yearSum += t.Year
			yearCount++
		}
		if md := t.Metadata; md != nil {
			for _, person := range md.MainPeople() {
				p.People[person] += w * 0.55
			}
			for _, k := range md.Keywords {
				p.Keywords[k] += w
			}
			if md.Collection != "" {
				p.Collections[md.Collection] += w
			}
			if md.AgeRating != "" {
				p.AgeRatings[md.AgeRating] += w
			}
		}
		if t.Runtime > 0 {
			runtimes = append(runtimes, t.Runtime)
		}

		if in.Liked && len(p.Anchors) < maxAnchors {
			p.Anchors = append(p.Anchors, anchorFor(t))
		}
	}

	if len(runtimes) > 0 {
		sum := 0
		for _, r := range runtimes {
			sum += r
		}
		avg := float64(sum) / float64(len(runtimes))
		sort.Ints(runtimes)
		median := float64(runtimes[len(runtimes)/2])
		p.RuntimeAvg = &avg
		p.RuntimeMedian = &median
	}
	if yearCount > 0 {
		avgYear := float64(yearSum) / float64(yearCount)
		p.FreshnessTilt = clamp((avgYear-2012)/15, -1, 1)
	}
	p.LanguageDiversity = len(p.Languages)
	p.UpdatedAt = now.UTC()
	return p
}

func anchorFor(t Title) Anchor {
	a := Anchor{
		ID:         t.ID,
		ExternalID: t.ExternalID,
		MediaType:  t.MediaType,
		Genres:     append([]string(nil), t.Genres...),
		People:     t.Metadata.MainPeople(),
		Label:      t.Label(),
		Year:       t.Year,
	}
	if a.Genres == nil {
		a.Genres = []string{}
	}
	return a
}

// MainPeople returns the collaborator fingerprint: up to two directors,
// four cast members and one writer. Safe on a nil receiver.
func (m *ExternalMetadata) MainPeople() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, 0, 7)
	out = append(out, head(m.Directors, 2)...)
	out = append(out, head(m.Cast, 4)...)
	out = append(out, head(m.Writers, 1)...)
	return out
}

// ScoringPeople returns every director and writer plus the first six cast
// members. Safe on a nil receiver.
func (m *ExternalMetadata) ScoringPeople() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Directors)+len(m.Writers)+6)
	out = append(out, m.Directors...)
	out = append(out, m.Writers...)
	out = append(out, head(m.Cast, 6)...)
	return out
}

// DecadeKey returns the decade bucket for a release year, e.g. "1990".
func DecadeKey(year int) string {
	return strconv.Itoa(year / 10 * 10)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
