// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
Package api exposes the recommendation engine over HTTP using the Chi router.

Routes:

	GET  /api/v1/health/live
	GET  /metrics
	GET  /api/v1/recommendations              ranked items for the caller's context
	GET  /api/v1/recommendations/evening      warm-up, main feature and dessert
	POST /api/v1/recommendations/feedback     like, dislike or watched; returns a replacement
	POST /api/v1/recommendations/tweak        shorter/longer, lighter/heavier
	POST /api/v1/recommendations/why-not      why a title was not served
	POST /api/v1/recommendations/profile/rebuild
	GET  /api/v1/feedback                     the caller's last feedback events

Every /api/v1/recommendations and /api/v1/feedback route requires an HS256
bearer token whose "sub" claim is the user id.

Responses use one envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "query_time_ms": 12}}
	{"status": "error", "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

Engine errors map to status codes through errors.Is on the recommend
sentinels: ErrInvalidInput 400, ErrNotFound 404, ErrConflict 409,
ErrUpstream 502, anything else 500.
*/
package api
