// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"math"
	"reflect"
	"testing"
)

func TestExplain_NeverEmpty(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	tests := []struct {
		name string
		item ScoredTitle
		want string
	}{
		{"rating fallback", ScoredTitle{Title: Title{ID: "a", Rating: ptr(6.4)}, Signals: Signals{}}, "TMDB rating 6.4, above average"},
		{"year fallback", ScoredTitle{Title: Title{ID: "b", Year: 1999}, Signals: Signals{}}, "Fits your favourite years (1999)"},
		{"generic fallback", ScoredTitle{Title: Title{ID: "c"}, Signals: Signals{}}, "Balanced match for your taste profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Explain(tt.item, p, Context{})
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Explain() = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestExplain_CappedAtFour(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.GenreNegative["horror"] = 1
	item := ScoredTitle{
		Title:   Title{ID: "a"},
		Reasons: []string{"one", "two", "three"},
		Signals: Signals{"genre:drama": 2, "similarity": 0.9, "runtimeFit": 0.9, "novelty": 0.6},
	}
	got := Explain(item, p, Context{NoveltyBias: "surprise"})
	if len(got) != maxReasons {
		t.Fatalf("len = %d, want %d: %v", len(got), maxReasons, got)
	}
	want := []string{"one", "two", "three", "Strong match on the genre «drama»"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Explain() = %v, want %v", got, want)
	}
}

func TestExplain_SkipsGenreWhenAlreadyMentioned(t *testing.T) {
	t.Parallel()

	item := ScoredTitle{
		Title:   Title{ID: "a"},
		Reasons: []string{"You love the genre «drama»"},
		Signals: Signals{"genre:drama": 3, "similarity": 0.5},
	}
	got := Explain(item, EmptyProfile(), Context{})
	want := []string{"You love the genre «drama»", "Similar to titles you love"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Explain() = %v, want %v", got, want)
	}
}

func TestSortedByMagnitude(t *testing.T) {
	t.Parallel()

	got := sortedByMagnitude(Signals{"b": -0.5, "a": 0.5, "c": 2, "d": math.NaN(), "e": 0.1})
	var keys []string
	for _, kv := range got {
		keys = append(keys, kv.key)
	}
	want := []string{"c", "a", "b", "e"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("order = %v, want %v", keys, want)
	}
}
