// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

const noveltySlotThreshold = 0.4

// diversityFloor is the number of picks accepted before overlap is enforced.
func diversityFloor(level string) int {
	switch level {
	case "soft":
		return 4
	case "bold":
		return 2
	default:
		return 3
	}
}

// Diversify re-ranks a score-sorted list into exactly min(limit, len(items))
// distinct titles. After the floor is reached, items sharing a genre or main
// collaborator with earlier picks are skipped; the shortfall is back-filled
// in score order. The last slot goes to the best unused high-novelty item,
// and under "bold" diversity slot 3 goes to the most diverse unused item.
func Diversify(items []ScoredTitle, limit int, level string) []ScoredTitle {
	if limit <= 0 || len(items) == 0 {
		return []ScoredTitle{}
	}
	floor := diversityFloor(level)

	picked := make([]ScoredTitle, 0, limit)
	used := make(map[string]bool, limit)
	usedGenres := map[string]bool{}
	usedPeople := map[string]bool{}

	for _, it := range items {
		if len(picked) >= limit {
			break
		}
		if used[it.Title.ID] {
			continue
		}
		people := it.Title.Metadata.MainPeople()
		if len(picked) >= floor && (overlaps(it.Title.Genres, usedGenres) || overlaps(people, usedPeople)) {
			continue
		}
		picked = append(picked, it)
		used[it.Title.ID] = true
		for _, g := range it.Title.Genres {
			usedGenres[g] = true
		}
		for _, p := range people {
			usedPeople[p] = true
		}
	}

	for _, it := range items {
		if len(picked) >= limit {
			break
		}
		if used[it.Title.ID] {
			continue
		}
		picked = append(picked, it)
		used[it.Title.ID] = true
	}

	if len(picked) == 0 {
		return picked
	}

	bestNovelty := 0.0
	bestIdx := -1
	for i, it := range items {
		n := it.Signals["novelty"]
		if n > noveltySlotThreshold && n > bestNovelty && !used[it.Title.ID] {
			bestNovelty = n
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		last := len(picked) - 1
		delete(used, picked[last].Title.ID)
		picked[last] = items[bestIdx]
		used[items[bestIdx].Title.ID] = true
	}

	if level == "bold" && len(picked) >= 3 {
		bestDiversity := 0.0
		bestIdx = -1
		for i, it := range items {
			d := it.Signals["diversity"]
			if d > bestDiversity && !used[it.Title.ID] {
				bestDiversity = d
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			delete(used, picked[2].Title.ID)
			picked[2] = items[bestIdx]
			used[items[bestIdx].Title.ID] = true
		}
	}
	return picked
}

func overlaps(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}
