// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var candidateGenres = []string{"drama", "comedy", "horror", "western", "animation", "crime"}

// seedCatalog stores one liked title for u1 and six unseen candidates c1..c6.
func seedCatalog(store *memStore) {
	seen := testTitle("seen1", 1, "drama")
	store.addTitle(seen)
	store.setState(UserTitleState{
		UserID: "u1", TitleID: "seen1", Status: StatusWatched, Liked: true,
		Source: SourceManual, LastInteraction: testEpoch.Add(-24 * time.Hour),
	})
	for i, g := range candidateGenres {
		store.addTitle(testTitle(fmt.Sprintf("c%d", i+1), int64(100+i), g))
	}
	store.trending[MediaMovie] = []CatalogItem{
		{ExternalID: 103, MediaType: MediaMovie},
		{ExternalID: 999, MediaType: MediaMovie},
	}
}

func storedProfile(t *testing.T, store *memStore, userID string) *TasteProfile {
	t.Helper()
	blob, ok, _ := store.LoadProfile(context.Background(), tasteKey(userID))
	if !ok {
		t.Fatalf("no stored profile for %s", userID)
	}
	var p TasteProfile
	if err := json.Unmarshal(blob.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	return &p
}

func TestNewService_RequiresStores(t *testing.T) {
	t.Parallel()

	if _, err := NewService(Dependencies{}, DefaultConfig()); err == nil {
		t.Error("NewService() with no stores should fail")
	}
	cfg := DefaultConfig()
	cfg.WeightMode = "C"
	store := newMemStore()
	deps := Dependencies{
		Interactions: store, Profiles: store, Titles: store, Catalog: store,
		Resolver: store, Sessions: store, Feedback: store,
	}
	if _, err := NewService(deps, cfg); err == nil {
		t.Error("NewService() with an unknown weight mode should fail")
	}
}

func TestRecommend_PersistsSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), "u1", 3, Context{Mood: "light"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(res.Items))
	}
	if res.Variant != VariantA {
		t.Errorf("Variant = %s, want A", res.Variant)
	}

	session, err := store.GetSession(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if session.UserID != "u1" || session.Context.Mood != "light" {
		t.Errorf("session = %+v", session)
	}

	stored, _ := store.ListItems(context.Background(), res.SessionID)
	if len(stored) != 3 {
		t.Fatalf("stored items = %d, want 3", len(stored))
	}
	seen := map[string]bool{}
	for i, it := range res.Items {
		if it.Title.ID == "seen1" {
			t.Error("seen title was recommended")
		}
		if seen[it.Title.ID] {
			t.Errorf("duplicate title %s", it.Title.ID)
		}
		seen[it.Title.ID] = true
		if len(it.Explanation) == 0 || len(it.Explanation) > maxReasons {
			t.Errorf("item %d explanation = %v", i, it.Explanation)
		}
		if stored[i].ID != it.ItemID || stored[i].Rank != i+1 || stored[i].TitleID != it.Title.ID {
			t.Errorf("stored item %d = %+v, served %+v", i, stored[i], it)
		}
		if len(stored[i].Signals.TopKeys) == 0 {
			t.Errorf("stored item %d has no top signal keys", i)
		}
	}
	if res.Items[0].Score < res.Items[1].Score {
		t.Errorf("first item score %v below second %v", res.Items[0].Score, res.Items[1].Score)
	}
}

func TestRecommend_InvalidLimit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemStore(), nil)
	_, err := svc.Recommend(context.Background(), "u1", 0, Context{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Recommend(limit 0) error = %v, want ErrInvalidInput", err)
	}
}

func TestRecommend_EmptyHistoryStillServes(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for i, g := range candidateGenres {
		store.addTitle(testTitle(fmt.Sprintf("c%d", i+1), int64(100+i), g))
	}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), "newcomer", 2, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(res.Items))
	}
}

func TestRecommend_CatalogFailureDegrades(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	store.catalogErr = errors.New("upstream down")
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), "u1", 2, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2 from local titles", len(res.Items))
	}
}

func TestRecommend_PoolCacheHit(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Recommend(ctx, "u1", 2, Context{}); err != nil {
		t.Fatalf("first Recommend() error = %v", err)
	}
	if store.trendingCalls != 1 {
		t.Fatalf("trendingCalls = %d, want 1", store.trendingCalls)
	}
	if _, err := svc.Recommend(ctx, "u1", 2, Context{}); err != nil {
		t.Fatalf("second Recommend() error = %v", err)
	}
	if store.trendingCalls != 1 {
		t.Errorf("trendingCalls = %d, want cached pool", store.trendingCalls)
	}
	if _, err := svc.Recommend(ctx, "u1", 2, Context{Mood: "heavy"}); err != nil {
		t.Fatalf("third Recommend() error = %v", err)
	}
	if store.trendingCalls != 2 {
		t.Errorf("trendingCalls = %d, a new context must miss the cache", store.trendingCalls)
	}
}

func TestRecommend_UsesSnapshotBeforeLiveCatalog(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	store.snapshots["movie/trending"] = []SnapshotEntry{{ExternalID: 104, MediaType: MediaMovie, Score: 10}}
	svc := newTestService(t, store, nil)

	if _, err := svc.Recommend(context.Background(), "u1", 2, Context{}); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if store.trendingCalls != 0 {
		t.Errorf("trendingCalls = %d, want snapshot to be used", store.trendingCalls)
	}
}

func TestFeedback_LikeReplacesItem(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	pub := &recordingPublisher{}
	svc := newTestService(t, store, func(d *Dependencies, _ *Config) { d.Events = pub })
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 3, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	target := res.Items[0].Title.ID

	rep, err := svc.Feedback(ctx, "u1", res.SessionID, target, VerdictLike)
	if err != nil {
		t.Fatalf("Feedback() error = %v", err)
	}
	if rep == nil {
		t.Fatal("Feedback() returned no replacement")
	}
	for _, it := range res.Items {
		if rep.Title.ID == it.Title.ID {
			t.Errorf("replacement %s was already served", rep.Title.ID)
		}
	}
	if rep.Title.ID == "seen1" {
		t.Error("replacement is a seen title")
	}

	items, _ := store.ListItems(ctx, res.SessionID)
	var original, added *SessionItem
	for i := range items {
		switch items[i].TitleID {
		case target:
			original = &items[i]
		case rep.Title.ID:
			added = &items[i]
		}
	}
	if original == nil || !original.Replaced {
		t.Errorf("original item = %+v, want replaced", original)
	}
	if added == nil || added.Rank != replacementRank || added.ID != rep.ItemID {
		t.Errorf("replacement item = %+v, want rank %d and id %s", added, replacementRank, rep.ItemID)
	}
	if n := store.itemCount(res.SessionID, rep.Title.ID); n != 1 {
		t.Errorf("replacement item count = %d, want 1", n)
	}

	if len(store.feedback) != 1 || store.feedback[0].Value != 1 || store.feedback[0].Context != FeedbackContextCard {
		t.Errorf("feedback = %+v", store.feedback)
	}
	if len(pub.events) != 1 || pub.events[0].TitleID != target {
		t.Errorf("published = %+v", pub.events)
	}
	st := store.states["u1"][target]
	if st.Status != StatusPlanned || !st.Liked || st.Source != SourceRecommendation {
		t.Errorf("state = %+v", st)
	}
	if p := storedProfile(t, store, "u1"); !p.Liked[target] {
		t.Error("rebuilt profile does not contain the liked title")
	}

	events, err := svc.ListFeedback(ctx, "u1")
	if err != nil || len(events) != 1 {
		t.Errorf("ListFeedback() = %v, %v", events, err)
	}
}

func TestFeedback_DislikeRaisesGenreNegative(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 3, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	target := res.Items[0].Title
	genre := target.Genres[0]
	before := storedProfile(t, store, "u1").GenreNegative[genre]

	if _, err := svc.Feedback(ctx, "u1", res.SessionID, target.ID, VerdictDislike); err != nil {
		t.Fatalf("Feedback() error = %v", err)
	}
	after := storedProfile(t, store, "u1")
	if after.GenreNegative[genre] <= before {
		t.Errorf("GenreNegative[%s] = %v, want above %v", genre, after.GenreNegative[genre], before)
	}
	if !after.Disliked[target.ID] {
		t.Error("disliked title missing from profile")
	}
	if store.feedback[0].Value != -1 {
		t.Errorf("feedback value = %d, want -1", store.feedback[0].Value)
	}
}

func TestFeedback_RejectsUnknownOrForeignSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 2, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	titleID := res.Items[0].Title.ID

	if _, err := svc.Feedback(ctx, "u1", "missing", titleID, VerdictLike); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Feedback(ctx, "u2", res.SessionID, titleID, VerdictLike); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign session error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Feedback(ctx, "u1", res.SessionID, "nope", VerdictLike); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown title error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Feedback(ctx, "u1", res.SessionID, titleID, Verdict("meh")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid verdict error = %v, want ErrInvalidInput", err)
	}
	if len(store.feedback) != 0 {
		t.Errorf("rejected feedback was recorded: %+v", store.feedback)
	}
}

func TestFeedback_UpdatesGroupProfile(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 2, Context{Company: "family"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	target := res.Items[0].Title
	if _, err := svc.Feedback(ctx, "u1", res.SessionID, target.ID, VerdictLike); err != nil {
		t.Fatalf("Feedback() error = %v", err)
	}

	blob, ok, _ := store.LoadProfile(ctx, "group:u1:family")
	if !ok || blob.Version != GroupSchemaVersion {
		t.Fatalf("group profile = %+v, %v", blob, ok)
	}
	var g GroupProfile
	if err := json.Unmarshal(blob.Data, &g); err != nil {
		t.Fatalf("decode group profile: %v", err)
	}
	if g.GenrePositive[target.Genres[0]] != 3 {
		t.Errorf("group genre weight = %v, want 3", g.GenrePositive[target.Genres[0]])
	}
	if _, ok, _ := store.LoadProfile(ctx, "group:u1:solo"); ok {
		t.Error("unexpected solo group profile")
	}
}

func TestAttachItem_ReusesExistingItem(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()
	rec := Recommendation{Title: testTitle("x", 1, "drama"), Score: 1, Signals: Signals{"rating": 0.7}}

	first, err := svc.attachItem(ctx, "s1", rec)
	if err != nil {
		t.Fatalf("attachItem() error = %v", err)
	}
	second, err := svc.attachItem(ctx, "s1", rec)
	if err != nil {
		t.Fatalf("attachItem() second error = %v", err)
	}
	if first != second {
		t.Errorf("item ids %s and %s, want reuse", first, second)
	}
	if n := store.itemCount("s1", "x"); n != 1 {
		t.Errorf("item count = %d, want 1", n)
	}
}

func TestAttachItem_RetriesOnConflict(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.conflictCreate = 1
	svc := newTestService(t, store, nil)

	id, err := svc.attachItem(context.Background(), "s1", Recommendation{Title: testTitle("x", 1), Signals: Signals{}})
	if err != nil {
		t.Fatalf("attachItem() error = %v", err)
	}
	item, err := store.FindItem(context.Background(), "s1", "x")
	if err != nil || item.ID != id || item.Rank != replacementRank {
		t.Errorf("item = %+v, %v", item, err)
	}

	store.conflictCreate = 10
	if _, err := svc.attachItem(context.Background(), "s1", Recommendation{Title: testTitle("y", 2), Signals: Signals{}}); !errors.Is(err, ErrConflict) {
		t.Errorf("exhausted retries error = %v, want ErrConflict", err)
	}
}

func TestAdjustContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       Context
		adj      Adjustments
		wantTime int
		wantMood string
	}{
		{"default shorter", Context{}, Adjustments{Runtime: "shorter"}, 80, ""},
		{"60 longer", Context{TimeAvailable: 60}, Adjustments{Runtime: "longer"}, 75, ""},
		{"40 shorter floors at 30", Context{TimeAvailable: 40}, Adjustments{Runtime: "shorter"}, 30, ""},
		{"150 longer", Context{TimeAvailable: 150}, Adjustments{Runtime: "longer"}, 180, ""},
		{"tone only", Context{TimeAvailable: 90, Mood: "heavy"}, Adjustments{Tone: "lighter"}, 90, "light"},
		{"heavier", Context{}, Adjustments{Tone: "heavier"}, 0, "heavy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustContext(tt.in, tt.adj)
			if got.TimeAvailable != tt.wantTime || got.Mood != tt.wantMood {
				t.Errorf("AdjustContext() = time %d mood %q, want %d %q", got.TimeAvailable, got.Mood, tt.wantTime, tt.wantMood)
			}
		})
	}
}

func TestTweak(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 2, Context{TimeAvailable: 120})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	target := res.Items[0].Title.ID

	if _, err := svc.Tweak(ctx, "u1", res.SessionID, target, Adjustments{Runtime: "sideways"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid tweak error = %v, want ErrInvalidInput", err)
	}

	rep, err := svc.Tweak(ctx, "u1", res.SessionID, target, Adjustments{Runtime: "shorter", Tone: "lighter"})
	if err != nil {
		t.Fatalf("Tweak() error = %v", err)
	}
	if rep == nil || rep.Title.ID == target {
		t.Fatalf("replacement = %+v", rep)
	}
	item, _ := store.FindItem(ctx, res.SessionID, target)
	if !item.Replaced {
		t.Error("tweaked item not marked replaced")
	}
	if len(store.feedback) != 0 {
		t.Error("a tweak must not record feedback")
	}
}

func TestBuildEveningProgram(t *testing.T) {
	t.Parallel()

	rec := func(id string, runtime int, signals Signals) Recommendation {
		tt := testTitle(id, 0, "drama")
		tt.Runtime = runtime
		return Recommendation{Title: tt, Signals: signals}
	}
	recs := []Recommendation{
		rec("main", 120, Signals{"mood": 0.3}),
		rec("long", 140, Signals{"mood": 0.1}),
		rec("warm", 90, Signals{"mood": 0.2}),
		rec("main", 120, Signals{"mood": 0.3}),
		rec("sweet", 95, Signals{}),
	}

	got := buildEveningProgram(recs)
	want := []struct{ role, id string }{{RoleWarmup, "warm"}, {RoleMain, "main"}, {RoleDessert, "sweet"}}
	if len(got) != len(want) {
		t.Fatalf("program = %+v", got)
	}
	for i, w := range want {
		if got[i].Role != w.role || got[i].Rec.Title.ID != w.id {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, got[i].Role, got[i].Rec.Title.ID, w.role, w.id)
		}
	}

	single := buildEveningProgram(recs[:1])
	if len(single) != 1 || single[0].Role != RoleMain {
		t.Errorf("single program = %+v, want main only", single)
	}
	if got := buildEveningProgram(nil); len(got) != 0 {
		t.Errorf("empty program = %+v", got)
	}
}

func TestEveningProgram(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)

	res, err := svc.EveningProgram(context.Background(), "u1", Context{})
	if err != nil {
		t.Fatalf("EveningProgram() error = %v", err)
	}
	if len(res.Items) == 0 || len(res.Items) > 3 {
		t.Fatalf("program length = %d", len(res.Items))
	}
	hasMain := false
	for _, it := range res.Items {
		if it.Role == RoleMain {
			hasMain = true
		}
	}
	if !hasMain {
		t.Errorf("program %+v has no main feature", res.Items)
	}
	session, _ := store.GetSession(context.Background(), res.SessionID)
	if session.Mode != ModeEveningProgram {
		t.Errorf("session mode = %q", session.Mode)
	}
}

func TestWhyNot(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	res, err := svc.Recommend(ctx, "u1", 2, Context{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	seen, err := svc.WhyNot(ctx, "u1", res.SessionID, "seen1")
	if err != nil {
		t.Fatalf("WhyNot(seen) error = %v", err)
	}
	if len(seen.Excluded) == 0 || seen.Excluded[0] != ExcludedSeen || seen.Score != nil {
		t.Errorf("WhyNot(seen) = %+v", seen)
	}

	served := map[string]bool{}
	for _, it := range res.Items {
		served[it.Title.ID] = true
	}
	var eligible string
	for i := range candidateGenres {
		id := fmt.Sprintf("c%d", i+1)
		if !served[id] {
			eligible = id
			break
		}
	}
	got, err := svc.WhyNot(ctx, "u1", res.SessionID, eligible)
	if err != nil {
		t.Fatalf("WhyNot(eligible) error = %v", err)
	}
	if len(got.Excluded) != 0 || got.Score == nil || got.Served {
		t.Errorf("WhyNot(eligible) = %+v", got)
	}
	if len(got.TopSignals) == 0 || len(got.TopSignals) > whyNotTopSignals || len(got.Reasons) == 0 {
		t.Errorf("WhyNot(eligible) signals %v reasons %v", got.TopSignals, got.Reasons)
	}
	if got.LowestServedScore == nil {
		t.Error("LowestServedScore not set")
	}

	if _, err := svc.WhyNot(ctx, "u2", res.SessionID, eligible); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign WhyNot error = %v, want ErrNotFound", err)
	}
}

func TestLoadProfile_RebuildsStaleSchema(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedCatalog(store)
	store.profiles[tasteKey("u1")] = ProfileBlob{Version: 2, Data: []byte(`{"schemaVersion":2}`)}
	svc := newTestService(t, store, nil)

	p, err := svc.loadProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("loadProfile() error = %v", err)
	}
	if p.SchemaVersion != ProfileSchemaVersion || !p.Liked["seen1"] {
		t.Errorf("profile = %+v, want rebuilt from history", p)
	}
	if store.profiles[tasteKey("u1")].Version != ProfileSchemaVersion {
		t.Error("rebuilt profile not stored")
	}
}
