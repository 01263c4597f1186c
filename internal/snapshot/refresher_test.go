// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package snapshot

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/recommend"
)

type fakeLister struct {
	trending map[recommend.MediaType][]recommend.CatalogItem
	popular  map[recommend.MediaType][]recommend.CatalogItem
	fail     map[string]bool // "tv/popular"
}

func (f *fakeLister) Trending(_ context.Context, mt recommend.MediaType) ([]recommend.CatalogItem, error) {
	if f.fail[string(mt)+"/trending"] {
		return nil, recommend.ErrUpstream
	}
	return f.trending[mt], nil
}

func (f *fakeLister) Popular(_ context.Context, mt recommend.MediaType) ([]recommend.CatalogItem, error) {
	if f.fail[string(mt)+"/popular"] {
		return nil, recommend.ErrUpstream
	}
	return f.popular[mt], nil
}

type writeCall struct {
	date    time.Time
	mt      recommend.MediaType
	kind    recommend.SnapshotKind
	entries []recommend.SnapshotEntry
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []writeCall
}

func (f *fakeWriter) ReplaceSnapshot(_ context.Context, date time.Time, mt recommend.MediaType,
	kind recommend.SnapshotKind, entries []recommend.SnapshotEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, writeCall{date, mt, kind, entries})
	return nil
}

type fakeResolver struct {
	mu       sync.Mutex
	resolved []int64
	fail     int64
}

func (f *fakeResolver) GetOrCreate(_ context.Context, ext int64, _ recommend.MediaType) (*recommend.Title, error) {
	if ext == f.fail {
		return nil, recommend.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, ext)
	return &recommend.Title{ExternalID: ext}, nil
}

func items(ids ...int64) []recommend.CatalogItem {
	out := make([]recommend.CatalogItem, len(ids))
	for i, id := range ids {
		out[i] = recommend.CatalogItem{ExternalID: id, Popularity: float64(100 - i)}
	}
	return out
}

func TestRefresh_WritesEveryList(t *testing.T) {
	lister := &fakeLister{
		trending: map[recommend.MediaType][]recommend.CatalogItem{
			recommend.MediaMovie: items(1, 2, 3),
			recommend.MediaTV:    items(10),
		},
		popular: map[recommend.MediaType][]recommend.CatalogItem{
			recommend.MediaMovie: {{ExternalID: 4, VoteAverage: 8.1}},
		},
	}
	writer := &fakeWriter{}
	resolver := &fakeResolver{fail: 2}
	r := NewRefresher(lister, writer, resolver, config.SnapshotConfig{TopN: 2, MediaTypes: []string{"movie", "tv"}}, zerolog.Nop())
	fixed := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	before := testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("ok"))
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("ok")) - before; got != 1 {
		t.Errorf("ok refreshes delta = %v, want 1", got)
	}

	if len(writer.calls) != 4 {
		t.Fatalf("ReplaceSnapshot called %d times, want 4", len(writer.calls))
	}
	first := writer.calls[0]
	if first.mt != recommend.MediaMovie || first.kind != recommend.SnapshotTrending || !first.date.Equal(fixed) {
		t.Errorf("first call = %+v", first)
	}
	if len(first.entries) != 2 || first.entries[0].ExternalID != 1 || first.entries[0].Score != 100 {
		t.Errorf("trending entries = %+v, want top 2 scored by popularity", first.entries)
	}
	popular := writer.calls[1]
	if len(popular.entries) != 1 || popular.entries[0].Score != 8.1 {
		t.Errorf("popular entries = %+v, want vote average fallback", popular.entries)
	}
	if empty := writer.calls[3]; empty.mt != recommend.MediaTV || len(empty.entries) != 0 {
		t.Errorf("empty list call = %+v", empty)
	}

	sort.Slice(resolver.resolved, func(i, j int) bool { return resolver.resolved[i] < resolver.resolved[j] })
	want := []int64{1, 4, 10}
	if len(resolver.resolved) != len(want) {
		t.Fatalf("resolved = %v, want %v", resolver.resolved, want)
	}
	for i := range want {
		if resolver.resolved[i] != want[i] {
			t.Errorf("resolved = %v, want %v", resolver.resolved, want)
			break
		}
	}
}

func TestRefresh_PartialFailure(t *testing.T) {
	lister := &fakeLister{
		trending: map[recommend.MediaType][]recommend.CatalogItem{recommend.MediaMovie: items(1)},
		fail:     map[string]bool{"movie/popular": true},
	}
	writer := &fakeWriter{}
	r := NewRefresher(lister, writer, nil, config.SnapshotConfig{MediaTypes: []string{"movie"}}, zerolog.Nop())

	before := testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("partial"))
	err := r.Refresh(context.Background())
	if !errors.Is(err, recommend.ErrUpstream) {
		t.Fatalf("Refresh() error = %v, want ErrUpstream", err)
	}
	if len(writer.calls) != 1 {
		t.Errorf("ReplaceSnapshot called %d times, want 1", len(writer.calls))
	}
	if got := testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("partial")) - before; got != 1 {
		t.Errorf("partial refreshes delta = %v, want 1", got)
	}
}

func TestRefresh_Cancelled(t *testing.T) {
	r := NewRefresher(&fakeLister{}, &fakeWriter{}, nil, config.SnapshotConfig{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, want context.Canceled", err)
	}
}

func TestNewRefresher_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRefresher(&fakeLister{}, &fakeWriter{}, nil, config.SnapshotConfig{}, zerolog.Nop())
	if r.topN != 40 {
		t.Errorf("topN = %d, want 40", r.topN)
	}
	if len(r.mediaTypes) != 2 || r.mediaTypes[0] != recommend.MediaMovie || r.mediaTypes[1] != recommend.MediaTV {
		t.Errorf("mediaTypes = %v, want [movie tv]", r.mediaTypes)
	}
}
