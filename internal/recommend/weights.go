// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

// Weights is a named set of per-signal weights.
type Weights struct {
	Rating         float64
	Popularity     float64
	Genre          float64
	Country        float64
	Decade         float64
	People         float64
	Runtime        float64
	Mood           float64
	Mindset        float64
	Company        float64
	Novelty        float64
	Language       float64
	Freshness      float64
	TypePreference float64
	Recency        float64
	Similarity     float64
	Keyword        float64
	Collection     float64
	AgeRating      float64
	ContextPace    float64
	Diversity      float64
	Anti           float64
}

// Weight variant names.
const (
	VariantA = "A"
	VariantB = "B"
)

// variantOrder fixes the hash bucket of each variant.
var variantOrder = []string{VariantA, VariantB}

// VariantWeights returns the weights of a named variant; unknown names get A.
func VariantWeights(variant string) Weights {
	w := Weights{
		Rating:      0.15,
		Recency:     0.05,
		Similarity:  0.15,
		Keyword:     0.06,
		Collection:  0.06,
		AgeRating:   0.05,
		ContextPace: 0.04,
		Diversity:   0.04,
		Anti:        0.25,
	}
	if variant == VariantB {
		w.Popularity = 0.15
		w.Genre = 0.22
		w.Country = 0.08
		w.Decade = 0.10
		w.People = 0.14
		w.Runtime = 0.10
		w.Mood = 0.10
		w.Mindset = 0.06
		w.Company = 0.05
		w.Novelty = 0.12
		w.Language = 0.06
		w.Freshness = 0.10
		w.TypePreference = 0.07
		return w
	}
	w.Popularity = 0.20
	w.Genre = 0.20
	w.Country = 0.10
	w.Decade = 0.08
	w.People = 0.12
	w.Runtime = 0.12
	w.Mood = 0.10
	w.Mindset = 0.05
	w.Company = 0.05
	w.Novelty = 0.08
	w.Language = 0.05
	w.Freshness = 0.08
	w.TypePreference = 0.08
	return w
}

// WithOverrides multiplies the overridable weights by positive override factors.
func (w Weights) WithOverrides(o Overrides) Weights {
	if o.Genre > 0 {
		w.Genre *= o.Genre
	}
	if o.Mood > 0 {
		w.Mood *= o.Mood
	}
	if o.Novelty > 0 {
		w.Novelty *= o.Novelty
	}
	if o.Decade > 0 {
		w.Decade *= o.Decade
	}
	if o.Country > 0 {
		w.Country *= o.Country
	}
	if o.People > 0 {
		w.People *= o.People
	}
	return w
}
