// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
Package catalog is the client for the external media catalog (TMDB v3 API)
and the resolver that turns catalog references into local titles.

Resilience:
  - Outbound token bucket (golang.org/x/time/rate) shared by every call
  - Bounded retries with exponential backoff on HTTP 429, 5xx and network
    errors; a Retry-After header overrides the computed delay
  - Bearer token first; when it is rejected with 401 and a v3 API key is
    configured, the client switches to the api_key query parameter for the
    rest of its lifetime
  - Circuit breaker (sony/gobreaker/v2) around each logical request; a 404
    counts as a successful call
  - Per-endpoint response caches: details 30m, similar 60m, trending and
    popular 30m, search 5m

Errors:
  - recommend.ErrNotFound for 404 responses
  - recommend.ErrUpstream for exhausted retries, open circuits and
    unexpected statuses

Client implements recommend.Catalog; Resolver implements
recommend.TitleResolver.
*/
package catalog
