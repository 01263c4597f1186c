// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"time"
)

// InteractionStore reads and writes per-user title state.
type InteractionStore interface {
	// ListInteractions returns every interaction for the user joined with
	// its title, ordered by last interaction descending.
	ListInteractions(ctx context.Context, userID string) ([]Interaction, error)
	UpsertState(ctx context.Context, state UserTitleState) error
	// GetStates returns the user's states keyed by title id.
	GetStates(ctx context.Context, userID string, titleIDs []string) (map[string]UserTitleState, error)
}

// ProfileBlob is a versioned, serialized profile.
type ProfileBlob struct {
	Version   int
	Data      []byte
	UpdatedAt time.Time
}

// ProfileStore persists taste and group profile blobs by key.
// A missing key returns ok=false and no error.
type ProfileStore interface {
	LoadProfile(ctx context.Context, key string) (blob ProfileBlob, ok bool, err error)
	SaveProfile(ctx context.Context, key string, blob ProfileBlob) error
}

// Catalog is the subset of the external catalog the engine calls on the hot
// path. Implementations retry transient failures themselves.
type Catalog interface {
	Similar(ctx context.Context, mediaType MediaType, externalID int64) ([]CatalogItem, error)
	Trending(ctx context.Context, mediaType MediaType) ([]CatalogItem, error)
	Popular(ctx context.Context, mediaType MediaType) ([]CatalogItem, error)
}

// TitleResolver performs an idempotent get-or-create of a local title from
// an external catalog reference.
type TitleResolver interface {
	GetOrCreate(ctx context.Context, externalID int64, mediaType MediaType) (*Title, error)
}

// TitleStore reads local titles.
type TitleStore interface {
	GetTitle(ctx context.Context, id string) (*Title, error)
	// LocalTitles returns up to limit titles not in exclude, newest update first.
	LocalTitles(ctx context.Context, limit int, exclude []string) ([]Title, error)
}

// SnapshotStore reads the latest periodic catalog snapshot.
type SnapshotStore interface {
	// LatestSnapshot returns the highest-scored rows of the most recent
	// snapshot date for the media type and kind, or nil when none exists.
	LatestSnapshot(ctx context.Context, mediaType MediaType, kind SnapshotKind, limit int) ([]SnapshotEntry, error)
}

// SessionStore owns recommendation sessions and their items. CreateItem must
// return ErrConflict when an item for (session, title) already exists.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	CreateItems(ctx context.Context, items []SessionItem) error
	CreateItem(ctx context.Context, item *SessionItem) error
	ListItems(ctx context.Context, sessionID string) ([]SessionItem, error)
	// FindItem returns the item for (session, title) or ErrNotFound.
	FindItem(ctx context.Context, sessionID, titleID string) (*SessionItem, error)
	MarkReplaced(ctx context.Context, sessionID, titleID string) error
	// RecentServedTitleIDs returns the title ids of the user's most recently
	// served items.
	RecentServedTitleIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

// ExperimentStore reads experiment definitions and assignments.
// CreateAssignment returns ErrConflict when the user is already assigned.
type ExperimentStore interface {
	GetExperiment(ctx context.Context, key string) (*Experiment, error)
	GetAssignment(ctx context.Context, userID, experimentKey string) (*Assignment, error)
	CreateAssignment(ctx context.Context, userID string, a Assignment) error
}

// FeedbackStore appends and lists feedback events.
type FeedbackStore interface {
	RecordFeedback(ctx context.Context, e *FeedbackEvent) error
	ListFeedback(ctx context.Context, userID string, limit int) ([]FeedbackEvent, error)
}

// EventPublisher publishes domain events after they are persisted.
// Publishing failures never fail the request.
type EventPublisher interface {
	PublishFeedback(ctx context.Context, e FeedbackEvent) error
}
