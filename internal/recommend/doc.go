// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package recommend implements the contextual recommendation engine.
//
// # Pipeline
//
// A recommendation call flows through these stages:
//
//  1. Variant selection: a weight variant (A/B) derived from a stable hash of
//     the user id, plus an optional experiment assignment whose config fills
//     context fields the caller left unset.
//  2. Taste profile: loaded from the ProfileStore when its schema version is
//     current, otherwise rebuilt from the full interaction history. A group
//     profile for the active company (family, friends, duo) is blended in at
//     0.6 personal / 0.4 group.
//  3. Candidate pool: titles similar to liked anchors, trending (and popular,
//     for "classic" freshness) seeds from snapshots or live catalog calls, and
//     recently updated local titles. Pools are cached per profile version and
//     context tuple.
//  4. Scoring: Score is a pure function of title, profile, context, weights
//     and the current year, returning a total plus every named signal.
//  5. Diversification and explanation.
//
// Feedback and tweak requests persist their effect, rebuild the profile
// synchronously and compute one replacement item inside the original session
// without ever creating a second item for the same (session, title) pair.
//
// # Collaborators
//
// Storage, the external catalog and title resolution are reached through the
// interfaces in interfaces.go. Concrete implementations live in the database,
// profilestore, catalog and cache packages.
//
// # Thread Safety
//
// Service is safe for concurrent use. Two identical concurrent requests may
// both build a candidate pool; results are idempotent and TTL bounded.
package recommend
