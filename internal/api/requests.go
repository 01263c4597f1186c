// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/reelsense/internal/recommend"
)

// RecommendQuery is the query string of the recommendation routes.
type RecommendQuery struct {
	Limit          int    `json:"limit" validate:"min=1,max=20"`
	Mood           string `json:"mood" validate:"omitempty,oneof=light neutral heavy"`
	Mindset        string `json:"mindset" validate:"omitempty,max=32"`
	Company        string `json:"company" validate:"omitempty,oneof=solo duo friends family"`
	TimeAvailable  int    `json:"timeAvailable" validate:"min=0,max=1440"`
	NoveltyBias    string `json:"noveltyBias" validate:"omitempty,oneof=safe mix surprise"`
	Pace           string `json:"pace" validate:"omitempty,oneof=calm balanced dynamic"`
	Freshness      string `json:"freshness" validate:"omitempty,oneof=classic fresh any"`
	DiversityLevel string `json:"diversityLevel" validate:"omitempty,oneof=soft balanced bold"`

	Overrides recommend.Overrides `json:"-"`
}

// FeedbackRequest is the body of POST /recommendations/feedback.
type FeedbackRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	TitleID   string `json:"titleId" validate:"required"`
	Feedback  string `json:"feedback" validate:"required,oneof=like dislike watched"`
}

// TweakRequest is the body of POST /recommendations/tweak. At least one of
// runtime and tone is expected; an empty tweak re-serves under the same
// context.
type TweakRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	TitleID   string `json:"titleId" validate:"required"`
	Runtime   string `json:"runtime,omitempty" validate:"omitempty,oneof=shorter longer"`
	Tone      string `json:"tone,omitempty" validate:"omitempty,oneof=lighter heavier"`
}

// WhyNotRequest is the body of POST /recommendations/why-not.
type WhyNotRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	TitleID   string `json:"titleId" validate:"required"`
}

// parseRecommendQuery reads the query string. Unparseable numbers fall back
// to their defaults; range checks are left to validateRequest.
func parseRecommendQuery(r *http.Request, defaultLimit int) RecommendQuery {
	q := r.URL.Query()
	return RecommendQuery{
		Limit:          getIntParam(q, "limit", defaultLimit),
		Mood:           strings.TrimSpace(q.Get("mood")),
		Mindset:        strings.TrimSpace(q.Get("mindset")),
		Company:        strings.TrimSpace(q.Get("company")),
		TimeAvailable:  getIntParam(q, "timeAvailable", 0),
		NoveltyBias:    strings.TrimSpace(q.Get("noveltyBias")),
		Pace:           strings.TrimSpace(q.Get("pace")),
		Freshness:      strings.TrimSpace(q.Get("freshness")),
		DiversityLevel: strings.TrimSpace(q.Get("diversityLevel")),
		Overrides: recommend.Overrides{
			Genre:   getFloatParam(q, "overrideGenre"),
			Mood:    getFloatParam(q, "overrideMood"),
			Novelty: getFloatParam(q, "overrideNovelty"),
			Decade:  getFloatParam(q, "overrideDecade"),
			Country: getFloatParam(q, "overrideCountry"),
			People:  getFloatParam(q, "overridePeople"),
		},
	}
}

// buildContext turns a validated query into the engine's request context,
// deriving time of day and weekday from now. An unset diversity level stays
// empty so an experiment variant can fill it; the engine treats it as
// balanced otherwise.
func buildContext(q RecommendQuery, now time.Time) recommend.Context {
	c := recommend.Context{
		Mood:           q.Mood,
		Mindset:        q.Mindset,
		Company:        q.Company,
		TimeAvailable:  q.TimeAvailable,
		NoveltyBias:    q.NoveltyBias,
		Pace:           q.Pace,
		Freshness:      q.Freshness,
		DiversityLevel: q.DiversityLevel,
		TimeOfDay:      timeOfDay(now.Hour()),
		DayOfWeek:      "weekday",
		Overrides:      q.Overrides,
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		c.DayOfWeek = "weekend"
	}
	return c
}

func timeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "late_night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "day"
	default:
		return "evening"
	}
}

func getIntParam(q url.Values, key string, defaultValue int) int {
	value := strings.TrimSpace(q.Get(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getFloatParam returns 0 for missing, malformed or non-finite values.
func getFloatParam(q url.Values, key string) float64 {
	value := strings.TrimSpace(q.Get(key))
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
