// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/reelsense/internal/api"
	"github.com/tomtom215/reelsense/internal/catalog"
	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/database"
	"github.com/tomtom215/reelsense/internal/eventbus"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/profilestore"
	"github.com/tomtom215/reelsense/internal/recommend"
	"github.com/tomtom215/reelsense/internal/snapshot"
	"github.com/tomtom215/reelsense/internal/supervisor"
	"github.com/tomtom215/reelsense/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Bool("events_enabled", cfg.Events.Enabled).
		Bool("snapshots_enabled", cfg.Snapshots.Enabled).
		Msg("Starting Reelsense")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

// run wires the components and blocks until ctx is cancelled. Stores are
// closed in reverse order of opening when it returns.
//
//nolint:gocyclo // sequential wiring
func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.Logger()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeWithLog("database", db.Close)
	logging.Info().Msg("Database initialized")

	profiles, err := profilestore.Open(cfg.Profiles)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer closeWithLog("profile store", profiles.Close)

	pools, closePools, err := newPoolCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWithLog("pool cache", closePools)

	client, err := catalog.NewClient(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}
	resolver := catalog.NewResolver(db, client)

	deps := recommend.Dependencies{
		Interactions: db,
		Profiles:     profiles,
		Titles:       db,
		Catalog:      client,
		Resolver:     resolver,
		Snapshots:    db,
		Sessions:     db,
		Experiments:  db,
		Feedback:     db,
		Pools:        pools,
	}

	var bus *eventbus.Bus
	if cfg.Events.Enabled {
		bus, err = eventbus.New(cfg.Events, logger)
		if err != nil {
			return fmt.Errorf("create event bus: %w", err)
		}
		defer closeWithLog("event bus", bus.Close)
		// Assigned only when enabled so the interface stays nil otherwise.
		deps.Events = bus
		logging.Info().Str("backend", cfg.Events.Backend).Str("topic", bus.Topic()).Msg("Feedback events enabled")
	}

	engine, err := recommend.NewService(deps, recommendConfig(cfg))
	if err != nil {
		return fmt.Errorf("create recommendation service: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.Profiles.StorePath != "" && cfg.Profiles.GCInterval > 0 {
		tree.AddStorageService(services.NewProfileGCService(profiles, cfg.Profiles.GCInterval, logger))
	}

	if cfg.Snapshots.Enabled {
		refresher := snapshot.NewRefresher(client, db, resolver, cfg.Snapshots, logger)
		tree.AddBackgroundService(services.NewSnapshotService(refresher, services.SnapshotServiceConfig{
			RefreshOnStartup: cfg.Snapshots.RefreshOnStartup,
			Interval:         cfg.Snapshots.Interval,
		}, logger))
	}

	if bus != nil {
		tree.AddBackgroundService(eventbus.NewConsumer(bus, logger, logFeedbackEvent))
	}

	handler := api.NewHandler(engine, api.HandlerConfig{
		DefaultLimit:   cfg.Recommend.DefaultLimit,
		RequestTimeout: cfg.Recommend.RequestTimeout,
	})
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, api.RouterConfigFromConfig(cfg)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, cfg.Server.ShutdownTimeout, logger))

	logging.Info().Str("addr", srv.Addr).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}

func closeWithLog(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Close failed")
	}
}

func logFeedbackEvent(ctx context.Context, e recommend.FeedbackEvent) error {
	logging.Ctx(ctx).Debug().
		Str("event_id", e.ID).
		Str("title_id", e.TitleID).
		Str("verdict", string(e.Verdict)).
		Msg("Feedback event consumed")
	return nil
}
