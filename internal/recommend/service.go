// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
)

// Dependencies are the collaborators of the engine. Events and Pools are
// optional; everything else is required.
type Dependencies struct {
	Interactions InteractionStore
	Profiles     ProfileStore
	Titles       TitleStore
	Catalog      Catalog
	Resolver     TitleResolver
	Snapshots    SnapshotStore
	Sessions     SessionStore
	Experiments  ExperimentStore
	Feedback     FeedbackStore
	Events       EventPublisher
	Pools        cache.Store
	Logger       *zerolog.Logger
}

// Service is the recommendation engine.
type Service struct {
	cfg          Config
	interactions InteractionStore
	profiles     ProfileStore
	titles       TitleStore
	catalog      Catalog
	resolver     TitleResolver
	snapshots    SnapshotStore
	sessions     SessionStore
	experiments  ExperimentStore
	feedback     FeedbackStore
	events       EventPublisher
	pools        cache.Store
	logger       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewService validates the configuration and wires the collaborators.
func NewService(deps Dependencies, cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	switch {
	case deps.Interactions == nil:
		return nil, errors.New("interaction store is required")
	case deps.Profiles == nil:
		return nil, errors.New("profile store is required")
	case deps.Titles == nil:
		return nil, errors.New("title store is required")
	case deps.Catalog == nil:
		return nil, errors.New("catalog is required")
	case deps.Resolver == nil:
		return nil, errors.New("title resolver is required")
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	case deps.Feedback == nil:
		return nil, errors.New("feedback store is required")
	}

	logger := logging.WithComponent("recommend")
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "recommend").Logger()
	}

	return &Service{
		cfg:          cfg,
		interactions: deps.Interactions,
		profiles:     deps.Profiles,
		titles:       deps.Titles,
		catalog:      deps.Catalog,
		resolver:     deps.Resolver,
		snapshots:    deps.Snapshots,
		sessions:     deps.Sessions,
		experiments:  deps.Experiments,
		feedback:     deps.Feedback,
		events:       deps.Events,
		pools:        deps.Pools,
		logger:       logger,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}, nil
}

// UserStateView is the user's existing state for a recommended title.
type UserStateView struct {
	Status   Status `json:"status"`
	Liked    bool   `json:"liked"`
	Disliked bool   `json:"disliked"`
}

// RecommendedItem is one entry of a served session.
type RecommendedItem struct {
	ItemID      string         `json:"itemId"`
	Role        string         `json:"role,omitempty"`
	Title       Title          `json:"title"`
	Score       float64        `json:"score"`
	Explanation []string       `json:"explanation"`
	Signals     SignalPayload  `json:"signals"`
	UserState   *UserStateView `json:"userState"`
}

// RecommendResult is the response of Recommend and EveningProgram.
type RecommendResult struct {
	SessionID string            `json:"sessionId"`
	Variant   string            `json:"variant"`
	Items     []RecommendedItem `json:"items"`
}

// Recommend resolves the variant and experiment, ranks candidates and
// persists a new session with its items.
func (s *Service) Recommend(ctx context.Context, userID string, limit int, c Context) (*RecommendResult, error) {
	start := time.Now()
	res, err := s.serve(ctx, userID, limit, c, "", nil)
	variant := ""
	if res != nil {
		variant = res.Variant
	}
	metrics.RecordRecommend("recommend", variant, time.Since(start), err)
	return res, err
}

// EveningProgram recommends twelve titles and arranges a warm-up, main
// feature and dessert from them.
func (s *Service) EveningProgram(ctx context.Context, userID string, c Context) (*RecommendResult, error) {
	start := time.Now()
	res, err := s.serve(ctx, userID, eveningPoolSize, c, ModeEveningProgram, buildEveningProgram)
	variant := ""
	if res != nil {
		variant = res.Variant
	}
	metrics.RecordRecommend("evening_program", variant, time.Since(start), err)
	return res, err
}

type arrangeFunc func([]Recommendation) []programEntry

type programEntry struct {
	Role string
	Rec  Recommendation
}

func (s *Service) serve(ctx context.Context, userID string, limit int, c Context, mode string, arrange arrangeFunc) (*RecommendResult, error) {
	assignment, err := s.resolveExperiment(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Experiment assignment failed, continuing without")
		assignment = nil
	}
	c = applyAssignment(c, assignment)
	variant := PickVariant(userID, s.cfg.WeightMode)

	recs, err := s.rank(ctx, userID, limit, c, variant)
	if err != nil {
		return nil, err
	}

	entries := make([]programEntry, 0, len(recs))
	if arrange != nil {
		entries = arrange(recs)
	} else {
		seen := make(map[string]bool, len(recs))
		for _, r := range recs {
			if seen[r.Title.ID] {
				continue
			}
			seen[r.Title.ID] = true
			entries = append(entries, programEntry{Rec: r})
		}
	}

	session := &Session{
		ID:         s.newID(),
		UserID:     userID,
		Context:    c,
		Variant:    variant,
		Experiment: assignment,
		Mode:       mode,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	items := make([]SessionItem, 0, len(entries))
	titleIDs := make([]string, 0, len(entries))
	for i, e := range entries {
		items = append(items, SessionItem{
			ID:        s.newID(),
			SessionID: session.ID,
			TitleID:   e.Rec.Title.ID,
			Rank:      i + 1,
			Score:     e.Rec.Score,
			Signals:   BuildSignalPayload(e.Rec.Signals),
			Role:      e.Role,
			CreatedAt: session.CreatedAt,
		})
		titleIDs = append(titleIDs, e.Rec.Title.ID)
	}
	if len(items) > 0 {
		if err := s.sessions.CreateItems(ctx, items); err != nil {
			return nil, fmt.Errorf("create session items: %w", err)
		}
	}

	states := map[string]UserTitleState{}
	if len(titleIDs) > 0 {
		states, err = s.interactions.GetStates(ctx, userID, titleIDs)
		if err != nil {
			return nil, fmt.Errorf("get user states: %w", err)
		}
	}

	result := &RecommendResult{SessionID: session.ID, Variant: variant, Items: make([]RecommendedItem, 0, len(entries))}
	for i, e := range entries {
		item := RecommendedItem{
			ItemID:      items[i].ID,
			Role:        e.Role,
			Title:       e.Rec.Title,
			Score:       e.Rec.Score,
			Explanation: e.Rec.Explanation,
			Signals:     items[i].Signals,
		}
		if st, ok := states[e.Rec.Title.ID]; ok {
			item.UserState = &UserStateView{Status: st.Status, Liked: st.Liked, Disliked: st.Disliked}
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// rank runs profile, pool, scoring, diversification and explanation. It has
// no side effects beyond profile rebuilds and the pool cache.
func (s *Service) rank(ctx context.Context, userID string, limit int, c Context, variant string) ([]Recommendation, error) {
	start := time.Now()
	if limit < 1 {
		return nil, fmt.Errorf("limit must be at least 1, got %d: %w", limit, ErrInvalidInput)
	}
	weights := VariantWeights(variant).WithOverrides(c.Overrides)

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	effective := profile
	if c.HasGroupCompany() {
		group, err := s.loadGroupProfile(ctx, userID, c.Company)
		if err != nil {
			s.logger.Warn().Err(err).Str("company", c.Company).Msg("Group profile unavailable")
		}
		effective = BlendProfiles(profile, group)
	}

	pool, err := s.buildPool(ctx, userID, effective, limit*s.cfg.PoolSizeMultiplier, c)
	if err != nil {
		return nil, fmt.Errorf("build candidate pool: %w", err)
	}

	year := s.now().Year()
	scored := make([]ScoredTitle, 0, len(pool))
	for i := range pool {
		if effective.Disliked[pool[i].ID] {
			continue
		}
		scored = append(scored, Score(&pool[i], effective, c, weights, year))
	}
	sortScored(scored)

	diversified := Diversify(scored, limit, c.DiversityLevel)
	recs := make([]Recommendation, 0, len(diversified))
	for _, it := range diversified {
		recs = append(recs, Recommendation{
			Title:       it.Title,
			Score:       it.Score,
			Signals:     it.Signals,
			Explanation: Explain(it, effective, c),
		})
	}

	ev := s.logger.Info().
		Str("user_id", userID).
		Str("variant", variant).
		Int("limit", limit).
		Int("candidate_count", len(pool)).
		Int("returned_count", len(recs)).
		Dur("took", time.Since(start))
	if n := min(5, len(recs)); n > 0 {
		sum := 0.0
		for _, r := range recs[:n] {
			sum += r.Score
		}
		ev = ev.Float64("avg_top_score", math.Round(sum/float64(n)*1000)/1000)
	}
	ev.Msg("recommendations_generated")
	return recs, nil
}

// sortScored orders by score descending with the title id as a stable tiebreak.
func sortScored(items []ScoredTitle) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Title.ID < items[j].Title.ID
	})
}

func tasteKey(userID string) string { return "taste:" + userID }

func groupKey(userID, company string) string { return "group:" + userID + ":" + company }

// loadProfile returns the stored profile when its schema is current and
// rebuilds it otherwise.
func (s *Service) loadProfile(ctx context.Context, userID string) (*TasteProfile, error) {
	blob, ok, err := s.profiles.LoadProfile(ctx, tasteKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load taste profile: %w", err)
	}
	if ok && blob.Version == ProfileSchemaVersion {
		var p TasteProfile
		if err := json.Unmarshal(blob.Data, &p); err == nil && p.SchemaVersion == ProfileSchemaVersion {
			p.normalize()
			return &p, nil
		}
		s.logger.Warn().Str("user_id", userID).Msg("Stored taste profile is unreadable, rebuilding")
	}
	return s.rebuild(ctx, userID, "stale")
}

// RebuildTasteProfile recomputes and stores the user's profile from the
// full interaction history.
func (s *Service) RebuildTasteProfile(ctx context.Context, userID string) (*TasteProfile, error) {
	return s.rebuild(ctx, userID, "manual")
}

func (s *Service) rebuild(ctx context.Context, userID, trigger string) (*TasteProfile, error) {
	history, err := s.interactions.ListInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	p := BuildProfile(history, s.cfg, s.now())
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode taste profile: %w", err)
	}
	blob := ProfileBlob{Version: ProfileSchemaVersion, Data: data, UpdatedAt: p.UpdatedAt}
	if err := s.profiles.SaveProfile(ctx, tasteKey(userID), blob); err != nil {
		return nil, fmt.Errorf("save taste profile: %w", err)
	}
	metrics.ProfileRebuilds.WithLabelValues(trigger).Inc()
	s.logger.Debug().Str("user_id", userID).Str("trigger", trigger).Int("interactions", len(history)).Msg("Taste profile rebuilt")
	return p, nil
}

// loadGroupProfile returns nil without error when no current group profile exists.
func (s *Service) loadGroupProfile(ctx context.Context, userID, company string) (*GroupProfile, error) {
	blob, ok, err := s.profiles.LoadProfile(ctx, groupKey(userID, company))
	if err != nil {
		return nil, fmt.Errorf("load group profile: %w", err)
	}
	if !ok || blob.Version != GroupSchemaVersion {
		return nil, nil
	}
	var g GroupProfile
	if err := json.Unmarshal(blob.Data, &g); err != nil {
		return nil, fmt.Errorf("decode group profile: %w", err)
	}
	g.normalize()
	return &g, nil
}

func (s *Service) updateGroupProfile(ctx context.Context, userID, company string, t Title, v Verdict) error {
	g, err := s.loadGroupProfile(ctx, userID, company)
	if err != nil {
		s.logger.Warn().Err(err).Str("company", company).Msg("Replacing unreadable group profile")
	}
	if g == nil {
		g = NewGroupProfile(company)
	}
	g.Apply(t, v, s.now())
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode group profile: %w", err)
	}
	blob := ProfileBlob{Version: GroupSchemaVersion, Data: data, UpdatedAt: g.UpdatedAt}
	if err := s.profiles.SaveProfile(ctx, groupKey(userID, company), blob); err != nil {
		return fmt.Errorf("save group profile: %w", err)
	}
	return nil
}

// ListFeedback returns the user's most recent feedback events.
func (s *Service) ListFeedback(ctx context.Context, userID string) ([]FeedbackEvent, error) {
	events, err := s.feedback.ListFeedback(ctx, userID, feedbackListLimit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return events, nil
}

const feedbackListLimit = 100
