// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package api

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		hour int
		want string
	}{
		{0, "late_night"},
		{5, "late_night"},
		{6, "morning"},
		{11, "morning"},
		{12, "day"},
		{17, "day"},
		{18, "evening"},
		{23, "evening"},
	}
	for _, tt := range tests {
		if got := timeOfDay(tt.hour); got != tt.want {
			t.Errorf("timeOfDay(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestBuildContext_DayOfWeek(t *testing.T) {
	t.Parallel()
	saturday := time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	c := buildContext(RecommendQuery{Mood: "light"}, saturday)
	if c.DayOfWeek != "weekend" || c.TimeOfDay != "evening" || c.Mood != "light" {
		t.Errorf("saturday context = %+v", c)
	}
	if c.DiversityLevel != "" {
		t.Errorf("DiversityLevel = %q, want unset", c.DiversityLevel)
	}

	c = buildContext(RecommendQuery{}, monday)
	if c.DayOfWeek != "weekday" || c.TimeOfDay != "morning" {
		t.Errorf("monday context = %+v", c)
	}
}

func TestParseRecommendQuery(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/api/v1/recommendations?limit=abc&timeAvailable=%2090%20"+
		"&overrideNovelty=0.25&overrideDecade=NaN&overrideCountry=oops&overridePeople=-1", nil)
	q := parseRecommendQuery(r, 5)

	if q.Limit != 5 {
		t.Errorf("Limit = %d, want default 5", q.Limit)
	}
	if q.TimeAvailable != 90 {
		t.Errorf("TimeAvailable = %d, want 90", q.TimeAvailable)
	}
	o := q.Overrides
	if o.Novelty != 0.25 || o.Decade != 0 || o.Country != 0 || o.People != -1 || o.Genre != 0 {
		t.Errorf("Overrides = %+v", o)
	}
}

func TestGetFloatParam_Infinity(t *testing.T) {
	t.Parallel()
	q := url.Values{"x": {"+Inf"}}
	if got := getFloatParam(q, "x"); got != 0 {
		t.Errorf("getFloatParam(+Inf) = %v, want 0", got)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
