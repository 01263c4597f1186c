// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Recommender is the engine surface the handlers call. *recommend.Service
// implements it.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int, c recommend.Context) (*recommend.RecommendResult, error)
	EveningProgram(ctx context.Context, userID string, c recommend.Context) (*recommend.RecommendResult, error)
	Feedback(ctx context.Context, userID, sessionID, titleID string, verdict recommend.Verdict) (*recommend.Replacement, error)
	Tweak(ctx context.Context, userID, sessionID, titleID string, adj recommend.Adjustments) (*recommend.Replacement, error)
	WhyNot(ctx context.Context, userID, sessionID, titleID string) (*recommend.WhyNotResult, error)
	RebuildTasteProfile(ctx context.Context, userID string) (*recommend.TasteProfile, error)
	ListFeedback(ctx context.Context, userID string) ([]recommend.FeedbackEvent, error)
}

var _ Recommender = (*recommend.Service)(nil)

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	DefaultLimit   int
	RequestTimeout time.Duration
}

// Handler serves the recommendation routes.
type Handler struct {
	engine Recommender
	cfg    HandlerConfig
	now    func() time.Time
}

// NewHandler returns a handler over engine.
func NewHandler(engine Recommender, cfg HandlerConfig) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	return &Handler{engine: engine, cfg: cfg, now: time.Now}
}

// FeedbackResponse is returned by feedback and tweak. Replacement is null
// when no eligible title was left.
type FeedbackResponse struct {
	Replacement *recommend.Replacement `json:"replacement"`
}

// FeedbackListResponse is returned by GET /feedback.
type FeedbackListResponse struct {
	Events []recommend.FeedbackEvent `json:"events"`
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// decodeBody decodes a bounded JSON body into dst and validates it. It
// writes the error response itself and reports whether the caller may go on.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON request body", nil)
		return false
	}
	if apiErr := validateRequest(dst); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

// Health handles GET /api/v1/health/live.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// Recommendations handles GET /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := parseRecommendQuery(r, h.cfg.DefaultLimit)
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	userID := logging.UserIDFromContext(ctx)

	res, err := h.engine.Recommend(ctx, userID, q.Limit, buildContext(q, h.now()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().
		Str("session_id", res.SessionID).
		Str("variant", res.Variant).
		Int("items", len(res.Items)).
		Msg("Recommendations served")
	respondSuccess(w, http.StatusOK, res, start)
}

// EveningProgram handles GET /api/v1/recommendations/evening. The limit
// parameter is ignored.
func (h *Handler) EveningProgram(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := parseRecommendQuery(r, h.cfg.DefaultLimit)
	q.Limit = h.cfg.DefaultLimit
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.engine.EveningProgram(ctx, logging.UserIDFromContext(ctx), buildContext(q, h.now()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, res, start)
}

// Feedback handles POST /api/v1/recommendations/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	ctx = logging.ContextWithSessionID(ctx, req.SessionID)

	rep, err := h.engine.Feedback(ctx, logging.UserIDFromContext(ctx), req.SessionID, req.TitleID, recommend.Verdict(req.Feedback))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().
		Str("title_id", sanitizeLogValue(req.TitleID)).
		Str("verdict", req.Feedback).
		Bool("replaced", rep != nil).
		Msg("Feedback recorded")
	respondSuccess(w, http.StatusOK, FeedbackResponse{Replacement: rep}, start)
}

// Tweak handles POST /api/v1/recommendations/tweak.
func (h *Handler) Tweak(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req TweakRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	ctx = logging.ContextWithSessionID(ctx, req.SessionID)

	adj := recommend.Adjustments{Runtime: req.Runtime, Tone: req.Tone}
	rep, err := h.engine.Tweak(ctx, logging.UserIDFromContext(ctx), req.SessionID, req.TitleID, adj)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, FeedbackResponse{Replacement: rep}, start)
}

// WhyNot handles POST /api/v1/recommendations/why-not.
func (h *Handler) WhyNot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req WhyNotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.engine.WhyNot(ctx, logging.UserIDFromContext(ctx), req.SessionID, req.TitleID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, res, start)
}

// RebuildProfile handles POST /api/v1/recommendations/profile/rebuild.
func (h *Handler) RebuildProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.requestContext(r)
	defer cancel()

	profile, err := h.engine.RebuildTasteProfile(ctx, logging.UserIDFromContext(ctx))
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("rebuild profile: %w", err))
		return
	}
	respondSuccess(w, http.StatusOK, profile, start)
}

// ListFeedback handles GET /api/v1/feedback.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.requestContext(r)
	defer cancel()

	events, err := h.engine.ListFeedback(ctx, logging.UserIDFromContext(ctx))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []recommend.FeedbackEvent{}
	}
	respondSuccess(w, http.StatusOK, FeedbackListResponse{Events: events}, start)
}
