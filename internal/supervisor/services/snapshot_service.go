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

// SnapshotRefresher runs one snapshot pass. Satisfied by *snapshot.Refresher.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) error
}

// SnapshotServiceConfig holds the refresh schedule.
type SnapshotServiceConfig struct {
	// RefreshOnStartup runs a pass as soon as the service starts.
	RefreshOnStartup bool

	// Interval between scheduled passes. Defaults to 6h.
	Interval time.Duration

	// Timeout bounds a single pass. Defaults to 10m.
	Timeout time.Duration
}

// SnapshotService refreshes catalog snapshots on a fixed schedule. Failed
// passes are logged and retried on the next tick; they never crash the
// service.
type SnapshotService struct {
	refresher SnapshotRefresher
	config    SnapshotServiceConfig
	logger    zerolog.Logger
}

// NewSnapshotService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSnapshotService(refresher SnapshotRefresher, cfg SnapshotServiceConfig, logger zerolog.Logger) *SnapshotService {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &SnapshotService{
		refresher: refresher,
		config:    cfg,
		logger:    logger.With().Str("service", "snapshot").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SnapshotService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("refresh_on_startup", s.config.RefreshOnStartup).
		Dur("interval", s.config.Interval).
		Msg("snapshot service starting")

	if s.config.RefreshOnStartup {
		s.refresh(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("snapshot service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx, "scheduled")
		}
	}
}

func (s *SnapshotService) refresh(ctx context.Context, trigger string) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.refresher.Refresh(runCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("snapshot refresh failed (will retry on schedule)")
	}
}

// String returns the service name for suture's logs.
func (s *SnapshotService) String() string {
	return "snapshot-service"
}
