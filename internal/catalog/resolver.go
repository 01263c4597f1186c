// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// TitleRepository is the persistence the resolver needs. Titles are unique
// by (external id, catalog type).
type TitleRepository interface {
	// FindByExternalID returns recommend.ErrNotFound when absent.
	FindByExternalID(ctx context.Context, externalID int64, catalogType recommend.MediaType) (*recommend.Title, error)
	// InsertTitle returns recommend.ErrConflict on a duplicate.
	InsertTitle(ctx context.Context, t *recommend.Title) error
}

// DetailsFetcher loads full title details from the catalog.
type DetailsFetcher interface {
	Details(ctx context.Context, externalID int64, mediaType recommend.MediaType) (*recommend.Title, error)
}

// Resolver performs get-or-create of local titles from catalog references.
// Concurrent calls for the same reference share one lookup.
type Resolver struct {
	repo    TitleRepository
	details DetailsFetcher
	group   singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(repo TitleRepository, details DetailsFetcher) *Resolver {
	return &Resolver{
		repo:    repo,
		details: details,
		now:     time.Now,
		logger:  logging.WithComponent("resolver"),
	}
}

// GetOrCreate returns the local title for the reference, fetching details
// and inserting it when it does not exist yet.
func (r *Resolver) GetOrCreate(ctx context.Context, externalID int64, mediaType recommend.MediaType) (*recommend.Title, error) {
	ct := mediaType.CatalogType()
	key := string(ct) + ":" + strconv.FormatInt(externalID, 10)

	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.getOrCreate(ctx, externalID, mediaType)
	})
	if err != nil {
		return nil, err
	}
	t := *v.(*recommend.Title)
	return &t, nil
}

func (r *Resolver) getOrCreate(ctx context.Context, externalID int64, mediaType recommend.MediaType) (*recommend.Title, error) {
	ct := mediaType.CatalogType()
	existing, err := r.repo.FindByExternalID(ctx, externalID, ct)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, recommend.ErrNotFound) {
		return nil, fmt.Errorf("find title %s/%d: %w", ct, externalID, err)
	}

	t, err := r.details.Details(ctx, externalID, mediaType)
	if err != nil {
		return nil, fmt.Errorf("fetch details %s/%d: %w", ct, externalID, err)
	}
	t.ID = uuid.NewString()
	t.ExternalID = externalID
	if !mediaType.Valid() {
		t.MediaType = ct
	}
	t.UpdatedAt = r.now().UTC()

	err = r.repo.InsertTitle(ctx, t)
	switch {
	case err == nil:
		r.logger.Debug().Int64("external_id", externalID).Str("media_type", string(ct)).
			Str("title_id", t.ID).Msg("Created title from catalog")
		return t, nil
	case errors.Is(err, recommend.ErrConflict):
		// lost a race with another writer
		winner, findErr := r.repo.FindByExternalID(ctx, externalID, ct)
		if findErr != nil {
			return nil, fmt.Errorf("re-read title %s/%d after conflict: %w", ct, externalID, findErr)
		}
		return winner, nil
	default:
		return nil, fmt.Errorf("insert title %s/%d: %w", ct, externalID, err)
	}
}

var _ recommend.TitleResolver = (*Resolver)(nil)
