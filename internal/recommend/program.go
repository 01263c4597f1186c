// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

// ModeEveningProgram marks sessions created by EveningProgram.
const ModeEveningProgram = "evening_program"

// Evening program roles.
const (
	RoleWarmup  = "warmup"
	RoleMain    = "main"
	RoleDessert = "dessert"
)

const eveningPoolSize = 12

// buildEveningProgram picks main (top ranked), a warm-up no longer and not
// much heavier than main, and a short or novel dessert, in viewing order.
func buildEveningProgram(recs []Recommendation) []programEntry {
	unique := make([]Recommendation, 0, len(recs))
	seen := map[string]bool{}
	for _, r := range recs {
		if !seen[r.Title.ID] {
			seen[r.Title.ID] = true
			unique = append(unique, r)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	main := unique[0]
	rest := unique[1:]
	mainRuntime := 110
	if main.Title.Runtime > 0 {
		mainRuntime = main.Title.Runtime
	}
	mainMood := main.Signals["mood"]

	warmup := main
	found := false
	for _, r := range rest {
		rt := mainRuntime
		if r.Title.Runtime > 0 {
			rt = r.Title.Runtime
		}
		mood, ok := r.Signals["mood"]
		if !ok {
			mood = mainMood
		}
		if rt <= mainRuntime && mood <= mainMood+0.2 {
			warmup = r
			found = true
			break
		}
	}
	if !found && len(rest) > 0 {
		warmup = rest[0]
	}

	used := map[string]bool{main.Title.ID: true, warmup.Title.ID: true}
	dessert := main
	for _, r := range rest {
		if used[r.Title.ID] {
			continue
		}
		rt := 90
		if r.Title.Runtime > 0 {
			rt = r.Title.Runtime
		}
		mt := r.Title.MediaType
		if rt <= 100 || mt == MediaTV || mt == MediaAnime || r.Signals["novelty"] > 0.3 {
			dessert = r
			break
		}
	}

	out := make([]programEntry, 0, 3)
	if warmup.Title.ID != main.Title.ID {
		out = append(out, programEntry{Role: RoleWarmup, Rec: warmup})
	}
	out = append(out, programEntry{Role: RoleMain, Rec: main})
	if dessert.Title.ID != main.Title.ID {
		out = append(out, programEntry{Role: RoleDessert, Rec: dessert})
	}
	return out
}
