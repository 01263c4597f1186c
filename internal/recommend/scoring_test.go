// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

const testYear = 2026

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.GenrePositive["drama"] = 2.5
	p.People["Jane Director"] = 1.4
	p.Anchors = []Anchor{{ID: "a1", Genres: []string{"drama"}, People: []string{"Jane Director"}, Label: "Anchor"}}
	title := testTitle("t1", 1, "drama", "crime")
	title.Metadata = &ExternalMetadata{Directors: []string{"Jane Director"}, Cast: []string{"A", "B"}, Keywords: []string{"heist"}}
	c := Context{Mood: "heavy", Company: "duo", TimeAvailable: 110, NoveltyBias: "surprise", TimeOfDay: "evening", DayOfWeek: "weekend"}
	w := VariantWeights(VariantB)

	first := Score(&title, p, c, w, testYear)
	for i := 0; i < 20; i++ {
		again := Score(&title, p, c, w, testYear)
		if again.Score != first.Score {
			t.Fatalf("run %d: score %v != %v", i, again.Score, first.Score)
		}
		if !reflect.DeepEqual(again.Signals, first.Signals) {
			t.Fatalf("run %d: signals differ", i)
		}
		if !reflect.DeepEqual(again.Reasons, first.Reasons) {
			t.Fatalf("run %d: reasons differ: %v vs %v", i, again.Reasons, first.Reasons)
		}
	}
}

func TestScore_LikedGenreOutranksNeutralGenre(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.GenrePositive["drama"] = 3
	p.PreferredTypes[MediaMovie] = true
	c := Context{Mood: "neutral"}
	w := VariantWeights(VariantA)

	drama := testTitle("t1", 1, "drama")
	drama.Rating = ptr(8)
	comedy := testTitle("t2", 2, "comedy")
	comedy.Rating = ptr(8)

	scored := []ScoredTitle{Score(&comedy, p, c, w, testYear), Score(&drama, p, c, w, testYear)}
	sortScored(scored)
	top := Diversify(scored, 1, "balanced")
	if len(top) != 1 || top[0].Title.ID != "t1" {
		t.Fatalf("top pick = %+v, want t1", top)
	}
	if top[0].Signals["genre:drama"] <= scored[1].Signals["genre:comedy"] {
		t.Errorf("genre:drama = %v, want > genre:comedy = %v", top[0].Signals["genre:drama"], scored[1].Signals["genre:comedy"])
	}

	explanation := Explain(top[0], p, c)
	found := false
	for _, r := range explanation {
		if strings.Contains(strings.ToLower(r), "drama") {
			found = true
		}
	}
	if !found {
		t.Errorf("explanation %v has no drama line", explanation)
	}
}

func TestScore_GenreAffinityOrdering(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.GenrePositive["western"] = 2
	w := VariantWeights(VariantA)

	a := testTitle("a", 1, "western")
	b := testTitle("b", 2, "opera")
	sa := Score(&a, p, Context{}, w, testYear)
	sb := Score(&b, p, Context{}, w, testYear)
	if sa.Score <= sb.Score {
		t.Errorf("western score %v should exceed opera score %v", sa.Score, sb.Score)
	}
}

func TestRuntimeFit_MaximalAtBudgetAndMonotonic(t *testing.T) {
	t.Parallel()

	const budget = 90.0
	if got := RuntimeFit(budget, budget); got != 1 {
		t.Fatalf("RuntimeFit(budget) = %v, want 1", got)
	}
	prev := 1.0
	for delta := 5.0; delta <= 200; delta += 5 {
		for _, rt := range []float64{budget + delta, budget - delta} {
			if rt <= 0 {
				continue
			}
			got := RuntimeFit(rt, budget)
			if got > prev {
				t.Fatalf("RuntimeFit(%v) = %v increased from %v", rt, got, prev)
			}
		}
		prev = RuntimeFit(budget+delta, budget)
	}
	if got := RuntimeFit(1000, budget); got != 0 {
		t.Errorf("RuntimeFit far away = %v, want 0", got)
	}
}

func TestScore_TimeBudgetPrefersCloserRuntime(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	c := Context{TimeAvailable: 70, NoveltyBias: "surprise"}
	w := VariantWeights(VariantA)

	short := testTitle("s1", 3)
	short.Runtime = 60
	long := testTitle("l1", 4)
	long.Runtime = 140

	ss := Score(&short, p, c, w, testYear)
	sl := Score(&long, p, c, w, testYear)
	if ss.Signals["runtimeFit"] <= sl.Signals["runtimeFit"] {
		t.Errorf("runtimeFit short=%v long=%v, want short greater", ss.Signals["runtimeFit"], sl.Signals["runtimeFit"])
	}
	if ss.Signals["novelty"] <= 0 {
		t.Errorf("novelty = %v, want positive under surprise", ss.Signals["novelty"])
	}
	if ss.Signals["runtime_bucket_short"] != 1 || sl.Signals["runtime_bucket_long"] != 1 {
		t.Errorf("runtime buckets not set: %v / %v", ss.Signals, sl.Signals)
	}
}

func TestScore_AntiListAndExplanation(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.GenreNegative["horror"] = 3
	w := VariantWeights(VariantA)

	horror := testTitle("h1", 5, "horror")
	scored := Score(&horror, p, Context{}, w, testYear)
	if scored.Signals["anti"] >= 0 {
		t.Fatalf("anti = %v, want negative", scored.Signals["anti"])
	}
	if math.Abs(scored.Signals["anti"]-(-1)) > 1e-9 {
		t.Errorf("anti = %v, want -1", scored.Signals["anti"])
	}
	explanation := Explain(scored, p, Context{})
	if !containsSubstring(explanation, "avoid") {
		t.Errorf("explanation %v has no anti-list line", explanation)
	}

	comedy := testTitle("c1", 6, "comedy")
	clean := Score(&comedy, p, Context{}, w, testYear)
	if got := Explain(clean, p, Context{}); !containsSubstring(got, "anti-list") {
		t.Errorf("explanation %v should mention the anti-list for a clean pick", got)
	}
}

func TestScore_FamilyPenalizesAdultContent(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	w := VariantWeights(VariantA)
	adult := testTitle("r1", 7, "thriller")
	adult.Adult = true
	adult.Metadata = &ExternalMetadata{AgeRating: "R"}
	clean := testTitle("g1", 8, "thriller")
	clean.Metadata = &ExternalMetadata{AgeRating: "PG"}

	c := Context{Company: "family", DayOfWeek: "weekend"}
	sa := Score(&adult, p, c, w, testYear)
	sc := Score(&clean, p, c, w, testYear)

	if math.Abs(sa.Signals["ageRatingFit"]-(-1.2)) > 1e-9 {
		t.Errorf("ageRatingFit = %v, want -1.2", sa.Signals["ageRatingFit"])
	}
	if sa.Signals["company"] != -0.9 || sc.Signals["company"] != 0.25 {
		t.Errorf("company adult=%v clean=%v", sa.Signals["company"], sc.Signals["company"])
	}
	if sc.Signals["timeOfDay"] != 0.15 {
		t.Errorf("timeOfDay = %v, want 0.15 weekend family bonus", sc.Signals["timeOfDay"])
	}
	if sa.Score >= sc.Score {
		t.Errorf("adult score %v should be below clean %v", sa.Score, sc.Score)
	}
}

func TestScore_SeenTitleLosesNovelty(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.Seen["t1"] = true
	title := testTitle("t1", 1)
	got := Score(&title, p, Context{NoveltyBias: "safe"}, VariantWeights(VariantA), testYear)
	if math.Abs(got.Signals["novelty"]-(-1.05)) > 1e-9 {
		t.Errorf("novelty = %v, want -1.05", got.Signals["novelty"])
	}
}

func TestScore_AnchorSimilarityReason(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	p.Anchors = []Anchor{{ID: "a", Genres: []string{"drama", "crime"}, People: []string{"D"}, Label: "Heat"}}
	title := testTitle("t1", 1, "drama", "crime")
	title.Metadata = &ExternalMetadata{Directors: []string{"D"}}

	got := Score(&title, p, Context{}, VariantWeights(VariantA), testYear)
	if math.Abs(got.Signals["similarity"]-1) > 1e-9 {
		t.Errorf("similarity = %v, want 1", got.Signals["similarity"])
	}
	if !containsSubstring(got.Reasons, "Heat") {
		t.Errorf("reasons %v should mention the anchor", got.Reasons)
	}
}

func TestWeightsWithOverrides(t *testing.T) {
	t.Parallel()

	base := VariantWeights(VariantA)
	got := base.WithOverrides(Overrides{Genre: 2, Mood: 0, People: 0.5})
	if got.Genre != base.Genre*2 {
		t.Errorf("Genre = %v, want %v", got.Genre, base.Genre*2)
	}
	if got.Mood != base.Mood {
		t.Errorf("Mood = %v, zero override must not change it", got.Mood)
	}
	if got.People != base.People*0.5 {
		t.Errorf("People = %v, want %v", got.People, base.People*0.5)
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
