// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector reclaims storage space. Satisfied by *profilestore.Store.
type GarbageCollector interface {
	RunGC() error
}

// ProfileGCService runs profile store value log GC every interval.
type ProfileGCService struct {
	gc       GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
}

// NewProfileGCService creates the service. A non-positive interval means 10m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProfileGCService(gc GarbageCollector, interval time.Duration, logger zerolog.Logger) *ProfileGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ProfileGCService{
		gc:       gc,
		interval: interval,
		logger:   logger.With().Str("service", "profile-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *ProfileGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("profile store GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("profile store GC complete")
		}
	}
}

// String returns the service name for suture's logs.
func (s *ProfileGCService) String() string {
	return "profile-gc-service"
}
