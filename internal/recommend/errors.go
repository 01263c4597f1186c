// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import "errors"

var (
	// ErrNotFound is returned when a session, item or title does not exist
	// or does not belong to the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores on unique-constraint violations and
	// by the engine once conflict retries are exhausted.
	ErrConflict = errors.New("conflict")

	// ErrUpstream marks failures of the external catalog.
	ErrUpstream = errors.New("upstream catalog error")

	// ErrInvalidInput marks caller errors such as an unknown verdict.
	ErrInvalidInput = errors.New("invalid input")
)
