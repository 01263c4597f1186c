// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reelsense/internal/config"
)

// RouterConfig is everything NewRouter needs besides the handler.
type RouterConfig struct {
	Middleware MiddlewareConfig
	JWTSecret  string
	JWTIssuer  string
}

// RouterConfigFromConfig derives router settings from the loaded config.
func RouterConfigFromConfig(cfg *config.Config) RouterConfig {
	return RouterConfig{
		Middleware: MiddlewareConfig{
			CORSAllowedOrigins: cfg.Security.CORSOrigins,
			CORSMaxAge:         86400,
			RateLimitRequests:  cfg.Security.RateLimitReqs,
			RateLimitWindow:    cfg.Security.RateLimitWindow,
			RateLimitDisabled:  cfg.Security.RateLimitDisabled,
		},
		JWTSecret: cfg.Security.JWTSecret,
		JWTIssuer: cfg.Security.JWTIssuer,
	}
}

// NewRouter builds the chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(cfg.Middleware))
	r.Use(requestMetrics)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/health/live", h.Health)

	auth := NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	r.Route("/api/v1/recommendations", func(r chi.Router) {
		r.Use(rateLimit(cfg.Middleware))
		r.Use(auth.Middleware)

		r.Get("/", h.Recommendations)
		r.Get("/evening", h.EveningProgram)
		r.Post("/feedback", h.Feedback)
		r.Post("/tweak", h.Tweak)
		r.Post("/why-not", h.WhyNot)
		r.Post("/profile/rebuild", h.RebuildProfile)
	})

	r.With(auth.Middleware).Get("/api/v1/feedback", h.ListFeedback)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
