// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	maxReasons          = 4
	materialSignal      = 0.35
	antiListQuietSignal = -0.05
)

// Explain builds at most four human readable reasons for a scored item.
// The result is never empty.
func Explain(item ScoredTitle, p *TasteProfile, c Context) []string {
	reasons := newReasonSet(item.Reasons...)

	if reasons.len() < maxReasons {
		for _, kv := range sortedByMagnitude(item.Signals) {
			if reasons.len() >= maxReasons {
				break
			}
			if math.Abs(kv.value) < materialSignal {
				continue
			}
			switch {
			case strings.HasPrefix(kv.key, "genre:"):
				if !reasons.any("genre") {
					reasons.add(fmt.Sprintf("Strong match on the genre «%s»", strings.TrimPrefix(kv.key, "genre:")))
				}
			case kv.key == "similarity" && kv.value > 0.2:
				reasons.add("Similar to titles you love")
			case kv.key == "runtimeFit" && kv.value > 0.6:
				reasons.add("Fits the time you usually set aside")
			case kv.key == "novelty" && kv.value > 0.3:
				reasons.add("Adds novelty without leaving your taste")
			}
		}
	}

	if c.NoveltyBias == "surprise" && item.Signals["novelty"] > 0.35 {
		reasons.add("Experimental pick for your surprise request")
	}

	if reasons.len() == 0 && item.Title.Rating != nil && *item.Title.Rating > 0 {
		reasons.add(fmt.Sprintf("TMDB rating %.1f, above average", *item.Title.Rating))
	}
	if reasons.len() == 0 && item.Title.Year > 0 {
		reasons.add(fmt.Sprintf("Fits your favourite years (%d)", item.Title.Year))
	}
	if reasons.len() == 0 {
		reasons.add("Balanced match for your taste profile")
	}

	if len(p.GenreNegative) > 0 && item.Signals["anti"] >= antiListQuietSignal {
		reasons.add("Steers clear of your stop genres and anti-list")
	}

	if reasons.len() > maxReasons {
		return reasons.items[:maxReasons]
	}
	return reasons.items
}

type signalKV struct {
	key   string
	value float64
}

// sortedByMagnitude orders signals by |value| descending, then by key so the
// order is stable across map iterations.
func sortedByMagnitude(s Signals) []signalKV {
	out := make([]signalKV, 0, len(s))
	for k, v := range s {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, signalKV{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].value), math.Abs(out[j].value)
		if ai != aj {
			return ai > aj
		}
		return out[i].key < out[j].key
	})
	return out
}
