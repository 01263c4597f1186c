// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"fmt"
	"math"
	"strings"
)

const (
	defaultRating      = 6.0
	popularityCap      = 400.0
	freshnessHorizon   = 40.0
	defaultRuntime     = 100.0
	runtimeFitFloor    = 130.0
	similarityReason   = 0.35
	familyAdultPenalty = 1.2
)

var moodGenres = map[string][]string{
	"light":   {"comedy", "animation", "adventure", "family", "комедия", "анимация", "приключения", "семейный"},
	"neutral": {"drama", "thriller", "fantasy", "драма", "триллер", "фэнтези"},
	"heavy":   {"thriller", "crime", "drama", "horror", "триллер", "криминал", "драма", "ужасы"},
}

// reasonSet keeps reasons unique in insertion order.
type reasonSet struct {
	items []string
	seen  map[string]struct{}
}

func newReasonSet(initial ...string) *reasonSet {
	r := &reasonSet{seen: make(map[string]struct{})}
	for _, s := range initial {
		r.add(s)
	}
	return r
}

func (r *reasonSet) add(s string) {
	if _, ok := r.seen[s]; ok {
		return
	}
	r.seen[s] = struct{}{}
	r.items = append(r.items, s)
}

func (r *reasonSet) len() int { return len(r.items) }

func (r *reasonSet) any(substr string) bool {
	for _, s := range r.items {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// Score computes the weighted score of one candidate. It performs no I/O and
// is deterministic for identical inputs; currentYear is passed in so that the
// result does not depend on the wall clock.
func Score(t *Title, p *TasteProfile, c Context, w Weights, currentYear int) ScoredTitle {
	signals := Signals{}
	reasons := newReasonSet()
	score := 0.0

	rating10 := defaultRating
	if t.Rating != nil {
		rating10 = *t.Rating
	}
	rating := rating10 / 10
	popularityRaw := rating10 * 12
	if t.Popularity != nil {
		popularityRaw = *t.Popularity
	}
	popularity := math.Min(1, popularityRaw/popularityCap)
	signals["rating"] = rating
	signals["popularity"] = popularity
	score += rating*w.Rating + popularity*w.Popularity
	if rating > 0.78 {
		reasons.add("Highly rated by audiences and critics")
	}

	genreScore := 0.0
	for _, g := range t.Genres {
		pos := p.GenrePositive[g]
		neg := p.GenreNegative[g]
		v := pos - neg
		signals["genre:"+g] = v
		genreScore += v
		if pos > 1.5 {
			reasons.add(fmt.Sprintf("You love the genre «%s»", g))
		}
		if neg > 1.2 {
			reasons.add(fmt.Sprintf("You usually avoid the genre «%s»", g))
		}
	}
	score += genreScore * w.Genre

	countryScore := 0.0
	for _, cc := range t.Countries {
		v := p.Countries[cc]
		signals["country:"+cc] = v
		countryScore += v
	}
	score += countryScore * w.Country

	if t.Year > 0 {
		decade := DecadeKey(t.Year)
		decadeWeight := p.Decades[decade]
		signals["decade:"+decade] = decadeWeight
		freshness := math.Max(0, 1-float64(currentYear-t.Year)/freshnessHorizon)
		signals["freshness"] = freshness
		recency := p.FreshnessTilt*0.6 + freshness*0.4
		signals["recency"] = recency
		score += decadeWeight*w.Decade + recency*w.Recency + freshness*w.Freshness
		if freshness > 0.7 && c.Freshness != "classic" {
			reasons.add("A fresh release from recent years")
		}
		if decadeWeight > 1 {
			reasons.add(fmt.Sprintf("You enjoy titles from the %ss", decade))
		}
	}

	if t.OriginalLanguage != "" {
		lw, ok := p.Languages[t.OriginalLanguage]
		if !ok {
			lw = 0.1
		}
		v := lw / 2
		signals["lang:"+t.OriginalLanguage] = v
		score += v * w.Language
	}

	md := t.Metadata
	peopleScore := 0.0
	for _, person := range md.ScoringPeople() {
		v := p.People[person]
		signals["person:"+person] = v
		peopleScore += v
		if v > 1.1 {
			reasons.add(fmt.Sprintf("Features %s, whose work you like", person))
		}
	}
	score += peopleScore * w.People

	if md != nil && len(md.Keywords) > 0 {
		keywordScore := 0.0
		for _, k := range md.Keywords {
			v := p.Keywords[k]
			if v == 0 {
				continue
			}
			signals["keyword:"+k] = v
			keywordScore += v
		}
		if keywordScore != 0 {
			signals["keywordMatch"] = keywordScore
			score += keywordScore * w.Keyword
			if keywordScore > 1.5 {
				reasons.add("Matches themes and tags you enjoy")
			}
		}
	}

	if md != nil && md.Collection != "" {
		if v := p.Collections[md.Collection]; v != 0 {
			signals["collection:"+md.Collection] = v
			signals["collectionMatch"] = v
			score += v * w.Collection
			if v > 1.1 {
				reasons.add(fmt.Sprintf("Part of the «%s» universe you like", md.Collection))
			}
		}
	}

	if md != nil && md.AgeRating != "" {
		ageScore := p.AgeRatings[md.AgeRating]
		if c.Company == "family" && isAdultRating(md.AgeRating, t.Adult) {
			ageScore -= familyAdultPenalty
		}
		if ageScore != 0 {
			signals["ageRatingFit"] = ageScore
			score += ageScore * w.AgeRating
		}
	}

	similarity, anchorLabel := anchorSimilarity(t, p.Anchors)
	signals["similarity"] = similarity
	score += similarity * w.Similarity
	if similarity > similarityReason && anchorLabel != "" {
		reasons.add(fmt.Sprintf("Looks like «%s» from your favourites", anchorLabel))
	}

	if t.Runtime > 0 {
		rt := float64(t.Runtime)
		fit := RuntimeFit(rt, runtimeTarget(p, c))
		signals["runtimeFit"] = fit
		score += fit * w.Runtime

		signals["runtime_bucket_short"] = boolSignal(t.Runtime < 85)
		signals["runtime_bucket_medium"] = boolSignal(t.Runtime >= 85 && t.Runtime <= 130)
		signals["runtime_bucket_long"] = boolSignal(t.Runtime > 130)

		pace := paceScore(c.Pace, t.Runtime)
		signals["pace"] = pace
		score += pace * w.ContextPace
		if fit > 0.7 && c.TimeAvailable > 0 {
			reasons.add("Fits the time you have planned")
		}
	}

	if mood := moodBoost(c.Mood, t.Genres); mood > 0 {
		signals["mood"] = mood
		score += mood * w.Mood
		if c.Mood != "" {
			reasons.add("Matches the mood you picked")
		}
	}
	signals["context_mood_light"] = boolSignal(c.Mood == "light")
	signals["context_mood_neutral"] = boolSignal(c.Mood == "neutral")
	signals["context_mood_heavy"] = boolSignal(c.Mood == "heavy")

	mindset := mindsetBoost(c.Mindset, rating)
	signals["mindset"] = mindset
	score += mindset * w.Mindset

	company := companyScore(c.Company, t.Adult)
	signals["company"] = company
	score += company * w.Company
	signals["context_company_solo"] = boolSignal(c.Company == "" || c.Company == "solo")
	signals["context_company_duo"] = boolSignal(c.Company == "duo")
	signals["context_company_friends"] = boolSignal(c.Company == "friends")
	signals["context_company_family"] = boolSignal(c.Company == "family")

	typePref := 0.65
	if p.PreferredTypes[t.MediaType] {
		typePref = 1
	}
	signals["typePreference"] = typePref
	score += typePref * w.TypePreference

	novelty := 0.25
	if p.Seen[t.ID] {
		novelty = -0.9
	}
	switch c.NoveltyBias {
	case "surprise":
		novelty += 0.35
	case "safe":
		novelty -= 0.15
	}
	signals["novelty"] = novelty
	score += novelty * w.Novelty
	if novelty > 0.3 {
		reasons.add("Adds something new to broaden your horizons")
	}

	diversity := math.Min(0.4, float64(len(t.Genres))*0.08+float64(p.LanguageDiversity)*0.01)
	signals["diversity"] = diversity
	score += diversity * w.Diversity

	antiHit := 0.0
	for _, g := range t.Genres {
		antiHit += p.GenreNegative[g]
	}
	anti := 0.0
	if antiHit != 0 {
		anti = -math.Min(1.2, antiHit/3)
	}
	signals["anti"] = anti
	score += anti * w.Anti

	if c.TimeOfDay != "" || c.DayOfWeek != "" {
		lateShort := (c.TimeOfDay == "late_night" || c.TimeOfDay == "evening") &&
			t.Runtime > 0 && t.Runtime <= 110
		familyWeekend := c.DayOfWeek == "weekend" && c.Company == "family" && !t.Adult
		timeScore := 0.0
		if lateShort {
			timeScore += 0.12
		}
		if familyWeekend {
			timeScore += 0.15
		}
		if timeScore != 0 {
			signals["timeOfDay"] = timeScore
			score += timeScore * w.Runtime
			if lateShort {
				reasons.add("Short enough for a late evening")
			}
			if familyWeekend {
				reasons.add("A family-friendly weekend pick")
			}
		}
	}

	return ScoredTitle{Title: *t, Score: score, Signals: signals, Reasons: reasons.items}
}

// RuntimeFit is 1 when runtime equals target and decreases linearly with the
// absolute difference, floored at 0.
func RuntimeFit(runtime, target float64) float64 {
	return math.Max(0, 1-math.Abs(runtime-target)/math.Max(target, runtimeFitFloor))
}

func runtimeTarget(p *TasteProfile, c Context) float64 {
	if c.TimeAvailable > 0 {
		return float64(c.TimeAvailable)
	}
	if p.RuntimeAvg != nil {
		return *p.RuntimeAvg
	}
	return defaultRuntime
}

func paceScore(pace string, runtime int) float64 {
	switch pace {
	case "calm":
		if runtime > 110 {
			return 0.4
		}
		return 0.15
	case "dynamic":
		if runtime < 115 {
			return 0.35
		}
		return 0.1
	default:
		return 0.2
	}
}

func moodBoost(mood string, genres []string) float64 {
	if mood == "" {
		return 0.05
	}
	targets := moodGenres[mood]
	overlap := 0
	for _, g := range genres {
		if containsAny(strings.ToLower(g), targets) {
			overlap++
		}
	}
	return math.Min(0.45, float64(overlap)*0.15)
}

func mindsetBoost(mindset string, rating float64) float64 {
	switch mindset {
	case "":
		return 0.08
	case "focus":
		return math.Min(0.45, (rating-0.6)*0.4)
	case "relax":
		return 0.18
	default:
		return 0.12
	}
}

func companyScore(company string, adult bool) float64 {
	switch {
	case company == "":
		return 0.1
	case company == "family" && adult:
		return -0.9
	case company == "family":
		return 0.25
	case company == "friends":
		return 0.18
	case company == "duo":
		return 0.12
	default:
		return 0.08
	}
}

func isAdultRating(rating string, adultFlag bool) bool {
	upper := strings.ToUpper(rating)
	return adultFlag || strings.Contains(rating, "18") || upper == "R" || upper == "NC-17"
}

// anchorSimilarity returns the best 0.6 genre / 0.4 collaborator Jaccard
// similarity against the anchors and that anchor's label.
func anchorSimilarity(t *Title, anchors []Anchor) (float64, string) {
	best := 0.0
	label := ""
	people := t.Metadata.MainPeople()
	for _, a := range anchors {
		s := jaccard(t.Genres, a.Genres)*0.6 + jaccard(people, a.People)*0.4
		if s > best {
			best = s
			label = a.Label
		}
	}
	return best, label
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, x := range a {
		setA[x] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for x := range setA {
		union[x] = struct{}{}
	}
	inter := 0
	seenB := make(map[string]struct{}, len(b))
	for _, x := range b {
		if _, dup := seenB[x]; dup {
			continue
		}
		seenB[x] = struct{}{}
		if _, ok := setA[x]; ok {
			inter++
		}
		union[x] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
