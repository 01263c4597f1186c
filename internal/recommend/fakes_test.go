// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/logging"
)

// memStore implements every store interface in memory.
type memStore struct {
	mu sync.Mutex

	titles      map[string]Title
	byExternal  map[int64]string
	states      map[string]map[string]UserTitleState
	profiles    map[string]ProfileBlob
	sessions    map[string]*Session
	items       []SessionItem
	feedback    []FeedbackEvent
	experiment  *Experiment
	assignments map[string]Assignment
	snapshots   map[string][]SnapshotEntry

	similar  map[int64][]CatalogItem
	trending map[MediaType][]CatalogItem
	popular  map[MediaType][]CatalogItem

	catalogErr     error
	conflictCreate int // CreateItem/CreateAssignment calls that fail with ErrConflict first
	trendingCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		titles:      map[string]Title{},
		byExternal:  map[int64]string{},
		states:      map[string]map[string]UserTitleState{},
		profiles:    map[string]ProfileBlob{},
		sessions:    map[string]*Session{},
		assignments: map[string]Assignment{},
		snapshots:   map[string][]SnapshotEntry{},
		similar:     map[int64][]CatalogItem{},
		trending:    map[MediaType][]CatalogItem{},
		popular:     map[MediaType][]CatalogItem{},
	}
}

func (m *memStore) addTitle(t Title) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles[t.ID] = t
	if t.ExternalID != 0 {
		m.byExternal[t.ExternalID] = t.ID
	}
}

func (m *memStore) setState(st UserTitleState) {
	_ = m.UpsertState(context.Background(), st)
}

// InteractionStore

func (m *memStore) ListInteractions(_ context.Context, userID string) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Interaction
	for _, st := range m.states[userID] {
		out = append(out, Interaction{
			UserID: st.UserID, TitleID: st.TitleID, Status: st.Status, Liked: st.Liked,
			Disliked: st.Disliked, Source: st.Source, LastInteraction: st.LastInteraction,
			Title: m.titles[st.TitleID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastInteraction.Equal(out[j].LastInteraction) {
			return out[i].LastInteraction.After(out[j].LastInteraction)
		}
		return out[i].TitleID < out[j].TitleID
	})
	return out, nil
}

func (m *memStore) UpsertState(_ context.Context, st UserTitleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[st.UserID] == nil {
		m.states[st.UserID] = map[string]UserTitleState{}
	}
	m.states[st.UserID][st.TitleID] = st
	return nil
}

func (m *memStore) GetStates(_ context.Context, userID string, ids []string) (map[string]UserTitleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]UserTitleState{}
	for _, id := range ids {
		if st, ok := m.states[userID][id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

// ProfileStore

func (m *memStore) LoadProfile(_ context.Context, key string) (ProfileBlob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.profiles[key]
	return b, ok, nil
}

func (m *memStore) SaveProfile(_ context.Context, key string, b ProfileBlob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[key] = b
	return nil
}

// TitleStore and TitleResolver

func (m *memStore) GetTitle(_ context.Context, id string) (*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.titles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memStore) LocalTitles(_ context.Context, limit int, exclude []string) ([]Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex := map[string]bool{}
	for _, id := range exclude {
		ex[id] = true
	}
	var out []Title
	for _, t := range m.titles {
		if !ex[t.ID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetOrCreate(_ context.Context, externalID int64, _ MediaType) (*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byExternal[externalID]
	if !ok {
		return nil, fmt.Errorf("external %d: %w", externalID, ErrNotFound)
	}
	t := m.titles[id]
	return &t, nil
}

// SnapshotStore

func (m *memStore) LatestSnapshot(_ context.Context, mt MediaType, kind SnapshotKind, limit int) ([]SnapshotEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.snapshots[string(mt)+"/"+string(kind)]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Catalog

func (m *memStore) Similar(_ context.Context, _ MediaType, id int64) ([]CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return m.similar[id], nil
}

func (m *memStore) Trending(_ context.Context, mt MediaType) ([]CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trendingCalls++
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return m.trending[mt], nil
}

func (m *memStore) Popular(_ context.Context, mt MediaType) ([]CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return m.popular[mt], nil
}

// SessionStore

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) CreateItems(ctx context.Context, items []SessionItem) error {
	for i := range items {
		if err := m.CreateItem(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) CreateItem(_ context.Context, item *SessionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictCreate > 0 {
		m.conflictCreate--
		return ErrConflict
	}
	for _, it := range m.items {
		if it.SessionID == item.SessionID && it.TitleID == item.TitleID {
			return ErrConflict
		}
	}
	m.items = append(m.items, *item)
	return nil
}

func (m *memStore) ListItems(_ context.Context, sessionID string) ([]SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SessionItem
	for _, it := range m.items {
		if it.SessionID == sessionID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) FindItem(_ context.Context, sessionID, titleID string) (*SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.SessionID == sessionID && it.TitleID == titleID {
			cp := it
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) MarkReplaced(_ context.Context, sessionID, titleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].SessionID == sessionID && m.items[i].TitleID == titleID {
			m.items[i].Replaced = true
		}
	}
	return nil
}

func (m *memStore) RecentServedTitleIDs(_ context.Context, userID string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		it := m.items[i]
		if s, ok := m.sessions[it.SessionID]; ok && s.UserID == userID {
			out = append(out, it.TitleID)
		}
	}
	return out, nil
}

func (m *memStore) itemCount(sessionID, titleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.SessionID == sessionID && it.TitleID == titleID {
			n++
		}
	}
	return n
}

// ExperimentStore

func (m *memStore) GetExperiment(_ context.Context, key string) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.experiment == nil || m.experiment.Key != key {
		return nil, ErrNotFound
	}
	cp := *m.experiment
	return &cp, nil
}

func (m *memStore) GetAssignment(_ context.Context, userID, key string) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[userID+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memStore) CreateAssignment(_ context.Context, userID string, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "/" + a.ExperimentKey
	if m.conflictCreate > 0 {
		m.conflictCreate--
		// simulate a concurrent writer that picked "control"
		m.assignments[k] = Assignment{ExperimentKey: a.ExperimentKey, VariantKey: "control"}
		return ErrConflict
	}
	if _, ok := m.assignments[k]; ok {
		return ErrConflict
	}
	m.assignments[k] = a
	return nil
}

// FeedbackStore

func (m *memStore) RecordFeedback(_ context.Context, e *FeedbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, *e)
	return nil
}

func (m *memStore) ListFeedback(_ context.Context, userID string, limit int) ([]FeedbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FeedbackEvent
	for i := len(m.feedback) - 1; i >= 0 && len(out) < limit; i-- {
		if m.feedback[i].UserID == userID {
			out = append(out, m.feedback[i])
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []FeedbackEvent
}

func (p *recordingPublisher) PublishFeedback(_ context.Context, e FeedbackEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// steppingClock advances one second on every call so profile rebuilds get
// distinct UpdatedAt values.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var testEpoch = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *memStore, mutate func(*Dependencies, *Config)) *Service {
	t.Helper()
	logger := logging.NewTestLogger(io.Discard)
	deps := Dependencies{
		Interactions: store,
		Profiles:     store,
		Titles:       store,
		Catalog:      store,
		Resolver:     store,
		Snapshots:    store,
		Sessions:     store,
		Experiments:  store,
		Feedback:     store,
		Pools:        cache.NewLRU(100, time.Minute),
		Logger:       &logger,
	}
	cfg := DefaultConfig()
	cfg.WeightMode = VariantA
	if mutate != nil {
		mutate(&deps, &cfg)
	}
	svc, err := NewService(deps, cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	clock := &steppingClock{now: testEpoch}
	svc.now = clock.Now
	seq := 0
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	return svc
}

func ptr(v float64) *float64 { return &v }

func testTitle(id string, ext int64, genres ...string) Title {
	return Title{
		ID:               id,
		ExternalID:       ext,
		MediaType:        MediaMovie,
		OriginalTitle:    "Title " + id,
		Year:             2021,
		Runtime:          100,
		Rating:           ptr(7),
		Popularity:       ptr(120),
		Genres:           genres,
		OriginalLanguage: "en",
		UpdatedAt:        testEpoch,
	}
}
