// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// Exclusion reasons reported by WhyNot.
const (
	ExcludedSeen     = "seen"
	ExcludedDisliked = "disliked"
	ExcludedServed   = "recently_served"
)

const whyNotTopSignals = 5

// WhyNotResult explains why a title was not served in a session.
type WhyNotResult struct {
	SessionID string `json:"sessionId"`
	TitleID   string `json:"titleId"`
	// Excluded lists the filters that removed the title before scoring.
	Excluded []string `json:"excluded"`
	// Served is true when the title is an active item of the session.
	Served     bool     `json:"served"`
	Score      *float64 `json:"score,omitempty"`
	TopSignals []string `json:"topSignals,omitempty"`
	// LowestServedScore is the score of the weakest active item.
	LowestServedScore *float64 `json:"lowestServedScore,omitempty"`
	Reasons           []string `json:"reasons,omitempty"`
}

// WhyNot reports whether a title was filtered out for the user or, when it
// was eligible, how it scores against the session's served items.
func (s *Service) WhyNot(ctx context.Context, userID, sessionID, titleID string) (*WhyNotResult, error) {
	session, title, err := s.sessionAndTitle(ctx, userID, sessionID, titleID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.sessions.ListItems(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session items: %w", err)
	}

	res := &WhyNotResult{SessionID: session.ID, TitleID: title.ID, Excluded: []string{}}
	var lowest *float64
	for _, it := range items {
		if it.Replaced {
			continue
		}
		if it.TitleID == title.ID {
			res.Served = true
		}
		if lowest == nil || it.Score < *lowest {
			score := it.Score
			lowest = &score
		}
	}
	res.LowestServedScore = lowest

	if profile.Seen[title.ID] {
		res.Excluded = append(res.Excluded, ExcludedSeen)
	}
	if profile.Disliked[title.ID] {
		res.Excluded = append(res.Excluded, ExcludedDisliked)
	}
	recent, err := s.sessions.RecentServedTitleIDs(ctx, userID, s.cfg.RecentServedLimit)
	if err != nil {
		return nil, fmt.Errorf("recent served titles: %w", err)
	}
	if !res.Served && slices.Contains(recent, title.ID) {
		res.Excluded = append(res.Excluded, ExcludedServed)
	}
	if len(res.Excluded) > 0 {
		return res, nil
	}

	c := session.Context
	effective := profile
	if c.HasGroupCompany() {
		group, err := s.loadGroupProfile(ctx, userID, c.Company)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Group profile unavailable")
		}
		effective = BlendProfiles(profile, group)
	}
	variant := session.Variant
	if variant == "" {
		variant = PickVariant(userID, s.cfg.WeightMode)
	}
	weights := VariantWeights(variant).WithOverrides(c.Overrides)
	scored := Score(title, effective, c, weights, s.now().Year())

	score := math.Round(scored.Score*1000) / 1000
	res.Score = &score
	for i, kv := range sortedByMagnitude(scored.Signals) {
		if i >= whyNotTopSignals {
			break
		}
		res.TopSignals = append(res.TopSignals, kv.key)
	}
	res.Reasons = Explain(scored, effective, c)
	return res, nil
}
