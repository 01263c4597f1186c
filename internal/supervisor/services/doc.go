// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
Package services adapts Reelsense components to suture's Serve(ctx) error
contract.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel.
  - SnapshotService: periodic catalog snapshot refresh, optionally on startup.
  - ProfileGCService: periodic Badger value log GC for the profile store.

Each wrapper accepts a narrow interface rather than the concrete component,
so the tests drive them with fakes. Periodic services log failed runs and
keep going; only the HTTP server returns an error (and gets restarted) when
its listener fails.
*/
package services
