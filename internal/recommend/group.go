// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"math"
	"sort"
	"time"
)

// GroupSchemaVersion is the current GroupProfile layout.
const GroupSchemaVersion = 1

const (
	personalMix = 0.6
	groupMix    = 0.4

	// maxGroupRuntimes bounds the runtime samples kept for the median.
	maxGroupRuntimes = 50
)

// GroupProfile accumulates feedback given while watching in company.
type GroupProfile struct {
	SchemaVersion int                `json:"schemaVersion"`
	Company       string             `json:"company"`
	GenrePositive map[string]float64 `json:"genrePositive"`
	GenreNegative map[string]float64 `json:"genreNegative"`
	Countries     map[string]float64 `json:"countries"`
	Decades       map[string]float64 `json:"decades"`
	Languages     map[string]float64 `json:"languages"`
	People        map[string]float64 `json:"people"`
	RuntimeAvg    *float64           `json:"runtimeAvg"`
	RuntimeMedian *float64           `json:"runtimeMedian"`
	Runtimes      []int              `json:"runtimes,omitempty"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NewGroupProfile returns an empty group profile for a company type.
func NewGroupProfile(company string) *GroupProfile {
	return &GroupProfile{
		SchemaVersion: GroupSchemaVersion,
		Company:       company,
		GenrePositive: map[string]float64{},
		GenreNegative: map[string]float64{},
		Countries:     map[string]float64{},
		Decades:       map[string]float64{},
		Languages:     map[string]float64{},
		People:        map[string]float64{},
		UpdatedAt:     time.Unix(0, 0).UTC(),
	}
}

func (g *GroupProfile) normalize() {
	for _, m := range []*map[string]float64{
		&g.GenrePositive, &g.GenreNegative, &g.Countries, &g.Decades, &g.Languages, &g.People,
	} {
		if *m == nil {
			*m = map[string]float64{}
		}
	}
}

// verdictWeight maps a feedback verdict onto the interaction weight scale.
func verdictWeight(v Verdict) float64 {
	switch v {
	case VerdictLike:
		return 3.0
	case VerdictWatched:
		return 1.6
	default:
		return -3.0
	}
}

// Apply folds one feedback event on a title into the group profile with the
// same damping factors as BuildProfile. Dislikes go to the negative genre map.
func (g *GroupProfile) Apply(t Title, v Verdict, now time.Time) {
	g.normalize()
	w := verdictWeight(v)
	for _, genre := range t.Genres {
		if w < 0 {
			g.GenreNegative[genre] += math.Abs(w)
		} else {
			g.GenrePositive[genre] += w
		}
	}
	for _, c := range t.Countries {
		g.Countries[c] += w * 0.7
	}
	if t.OriginalLanguage != "" {
		g.Languages[t.OriginalLanguage] += w * 0.5
	}
	if t.Year > 0 {
		g.Decades[DecadeKey(t.Year)] += w * 0.8
	}
	for _, p := range t.Metadata.MainPeople() {
		g.People[p] += w * 0.55
	}
	if t.Runtime > 0 && w > 0 {
		g.Runtimes = append(g.Runtimes, t.Runtime)
		if len(g.Runtimes) > maxGroupRuntimes {
			g.Runtimes = g.Runtimes[len(g.Runtimes)-maxGroupRuntimes:]
		}
		sum := 0
		for _, r := range g.Runtimes {
			sum += r
		}
		avg := float64(sum) / float64(len(g.Runtimes))
		sorted := append([]int(nil), g.Runtimes...)
		sort.Ints(sorted)
		median := float64(sorted[len(sorted)/2])
		g.RuntimeAvg = &avg
		g.RuntimeMedian = &median
	}
	g.UpdatedAt = now.UTC()
}

// BlendProfiles returns a copy of the personal profile with every key present
// in the group maps mixed 0.6 personal / 0.4 group. Runtime average is
// blended the same way when either side has one; the median stays personal.
func BlendProfiles(user *TasteProfile, group *GroupProfile) *TasteProfile {
	if group == nil {
		return user
	}
	merged := *user
	merged.GenrePositive = mixWeights(user.GenrePositive, group.GenrePositive)
	merged.GenreNegative = mixWeights(user.GenreNegative, group.GenreNegative)
	merged.Countries = mixWeights(user.Countries, group.Countries)
	merged.Decades = mixWeights(user.Decades, group.Decades)
	merged.Languages = mixWeights(user.Languages, group.Languages)
	merged.People = mixWeights(user.People, group.People)

	if user.RuntimeAvg != nil || group.RuntimeAvg != nil {
		u := firstNonNil(user.RuntimeAvg, group.RuntimeAvg)
		g := firstNonNil(group.RuntimeAvg, user.RuntimeAvg)
		avg := u*personalMix + g*groupMix
		merged.RuntimeAvg = &avg
	}
	return &merged
}

func mixWeights(u, g map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(u)+len(g))
	for k, v := range u {
		out[k] = v
	}
	for k, gv := range g {
		out[k] = u[k]*personalMix + gv*groupMix
	}
	return out
}

func firstNonNil(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
