// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/reelsense/internal/metrics"
)

// replacementRank is the rank of items added to a session after it was served.
const replacementRank = 99

// Replacement is the item computed after feedback or a tweak.
type Replacement struct {
	ItemID      string   `json:"itemId"`
	Title       Title    `json:"title"`
	Explanation []string `json:"explanation"`
}

// Adjustments are the directions of a tweak request.
type Adjustments struct {
	Runtime string `json:"runtime,omitempty"` // shorter, longer
	Tone    string `json:"tone,omitempty"`    // lighter, heavier
}

// Valid reports whether both directions are empty or known.
func (a Adjustments) Valid() bool {
	switch a.Runtime {
	case "", "shorter", "longer":
	default:
		return false
	}
	switch a.Tone {
	case "", "lighter", "heavier":
	default:
		return false
	}
	return true
}

// Feedback records the user's verdict on a served title, rebuilds the taste
// profile and returns one replacement recommendation inside the session.
// A nil Replacement with a nil error means no replacement was available.
func (s *Service) Feedback(ctx context.Context, userID, sessionID, titleID string, verdict Verdict) (*Replacement, error) {
	start := time.Now()
	rep, err := s.feedbackFlow(ctx, userID, sessionID, titleID, verdict)
	metrics.RecordRecommend("feedback", "", time.Since(start), err)
	return rep, err
}

func (s *Service) feedbackFlow(ctx context.Context, userID, sessionID, titleID string, verdict Verdict) (*Replacement, error) {
	if !verdict.Valid() {
		return nil, fmt.Errorf("verdict %q: %w", verdict, ErrInvalidInput)
	}
	session, title, err := s.sessionAndTitle(ctx, userID, sessionID, titleID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	value := 1
	if verdict == VerdictDislike {
		value = -1
	}
	event := &FeedbackEvent{
		ID:        s.newID(),
		UserID:    userID,
		TitleID:   title.ID,
		Value:     value,
		Verdict:   verdict,
		Context:   FeedbackContextCard,
		SessionID: session.ID,
		CreatedAt: now,
	}
	if err := s.feedback.RecordFeedback(ctx, event); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}
	metrics.FeedbackEvents.WithLabelValues(string(verdict)).Inc()

	status := StatusPlanned
	switch verdict {
	case VerdictWatched:
		status = StatusWatched
	case VerdictDislike:
		status = StatusDropped
	}
	state := UserTitleState{
		UserID:          userID,
		TitleID:         title.ID,
		Status:          status,
		Liked:           verdict == VerdictLike,
		Disliked:        verdict == VerdictDislike,
		Source:          SourceRecommendation,
		LastInteraction: now,
	}
	if err := s.interactions.UpsertState(ctx, state); err != nil {
		return nil, fmt.Errorf("upsert title state: %w", err)
	}

	// the replacement must reflect this feedback, so the rebuild is synchronous
	if _, err := s.rebuild(ctx, userID, "feedback"); err != nil {
		return nil, fmt.Errorf("rebuild taste profile: %w", err)
	}
	if session.Context.HasGroupCompany() {
		if err := s.updateGroupProfile(ctx, userID, session.Context.Company, *title, verdict); err != nil {
			s.logger.Warn().Err(err).Str("company", session.Context.Company).Msg("Group profile update failed")
		}
	}

	if err := s.sessions.MarkReplaced(ctx, session.ID, title.ID); err != nil {
		return nil, fmt.Errorf("mark item replaced: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishFeedback(ctx, *event); err != nil {
			s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("Publishing feedback event failed")
		}
	}

	return s.replace(ctx, session, session.Context)
}

// Tweak adjusts the session context (time budget, tone) and returns one fresh
// recommendation for the session under the adjusted context.
func (s *Service) Tweak(ctx context.Context, userID, sessionID, titleID string, adj Adjustments) (*Replacement, error) {
	start := time.Now()
	rep, err := s.tweakFlow(ctx, userID, sessionID, titleID, adj)
	metrics.RecordRecommend("tweak", "", time.Since(start), err)
	return rep, err
}

func (s *Service) tweakFlow(ctx context.Context, userID, sessionID, titleID string, adj Adjustments) (*Replacement, error) {
	if !adj.Valid() {
		return nil, fmt.Errorf("tweak %+v: %w", adj, ErrInvalidInput)
	}
	session, title, err := s.sessionAndTitle(ctx, userID, sessionID, titleID)
	if err != nil {
		return nil, err
	}
	adjusted := AdjustContext(session.Context, adj)
	if err := s.sessions.MarkReplaced(ctx, session.ID, title.ID); err != nil {
		return nil, fmt.Errorf("mark item replaced: %w", err)
	}
	return s.replace(ctx, session, adjusted)
}

// AdjustContext applies tweak directions to a session context. The time
// step grows with the budget: 15 up to 60 minutes, 20 up to 120, then 30.
func AdjustContext(c Context, adj Adjustments) Context {
	if adj.Runtime != "" {
		budget := c.TimeAvailable
		if budget <= 0 {
			budget = int(defaultRuntime)
		}
		step := 30
		switch {
		case budget <= 60:
			step = 15
		case budget <= 120:
			step = 20
		}
		if adj.Runtime == "shorter" {
			c.TimeAvailable = max(30, budget-step)
		} else {
			c.TimeAvailable = budget + step
		}
	}
	switch adj.Tone {
	case "lighter":
		c.Mood = "light"
	case "heavier":
		c.Mood = "heavy"
	}
	return c
}

// sessionAndTitle loads both and hides sessions of other users.
func (s *Service) sessionAndTitle(ctx context.Context, userID, sessionID, titleID string) (*Session, *Title, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	title, err := s.titles.GetTitle(ctx, titleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("title %s: %w", titleID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get title: %w", err)
	}
	return session, title, nil
}

// replace ranks one title under c and attaches it to the session, reusing
// the existing item when the session already holds that title.
func (s *Service) replace(ctx context.Context, session *Session, c Context) (*Replacement, error) {
	variant := session.Variant
	if variant == "" {
		variant = PickVariant(session.UserID, s.cfg.WeightMode)
	}
	recs, err := s.rank(ctx, session.UserID, 1, c, variant)
	if err != nil {
		return nil, fmt.Errorf("rank replacement: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	rec := recs[0]

	itemID, err := s.attachItem(ctx, session.ID, rec)
	if err != nil {
		return nil, err
	}
	return &Replacement{ItemID: itemID, Title: rec.Title, Explanation: rec.Explanation}, nil
}

// attachItem returns the id of the session's item for the title, creating it
// when missing. A create that loses a uniqueness race re-reads the winner.
func (s *Service) attachItem(ctx context.Context, sessionID string, rec Recommendation) (string, error) {
	for attempt := 0; attempt < s.cfg.ConflictRetries; attempt++ {
		existing, err := s.sessions.FindItem(ctx, sessionID, rec.Title.ID)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("find session item: %w", err)
		}

		item := &SessionItem{
			ID:        s.newID(),
			SessionID: sessionID,
			TitleID:   rec.Title.ID,
			Rank:      replacementRank,
			Score:     rec.Score,
			Signals:   BuildSignalPayload(rec.Signals),
			CreatedAt: s.now().UTC(),
		}
		err = s.sessions.CreateItem(ctx, item)
		if err == nil {
			return item.ID, nil
		}
		if !errors.Is(err, ErrConflict) {
			return "", fmt.Errorf("create session item: %w", err)
		}
	}
	return "", fmt.Errorf("attach item to session %s: %w", sessionID, ErrConflict)
}
