// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
Package supervisor runs Reelsense's long-lived services under a suture v4
supervisor tree.

The tree has three layers, each with its own failure accounting:

	RootSupervisor ("reelsense")
	├── "storage-layer"
	│   └── ProfileGCService (on-disk profile store only)
	├── "background-layer"
	│   ├── SnapshotService (if snapshots.enabled)
	│   └── eventbus.Consumer (if events.enabled)
	└── "api-layer"
	    └── HTTPServerService

Services restart on failure with suture's threshold/decay backoff.
Cancelling the context passed to Serve shuts everything down, each service
bounded by TreeConfig.ShutdownTimeout; UnstoppedServiceReport names any
that did not stop in time.

Supervision events go to a *slog.Logger through sutureslog. In main that
logger is logging.NewSlogLogger, so they land in the zerolog output with
everything else:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, cfg.Server.ShutdownTimeout, logging.Logger()))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree stopped")
	}

Service wrappers live in the services subpackage.
*/
package supervisor
