// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/reelsense/internal/recommend"
)

func testItem(id, session, title string, rank int, at time.Time) recommend.SessionItem {
	return recommend.SessionItem{
		ID: id, SessionID: session, TitleID: title, Rank: rank, Score: 1.5 - float64(rank)*0.1,
		Signals: recommend.SignalPayload{
			Values:    recommend.Signals{"genre": 0.8, "anti": -0.2},
			TopKeys:   []string{"genre", "anti"},
			TopGroups: map[string]int{"core": 1, "anti": 1},
		},
		CreatedAt: at,
	}
}

func TestSessions_CreateAndGet(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	want := &recommend.Session{
		ID:      "s1",
		UserID:  "u1",
		Context: recommend.Context{Mood: "light", TimeAvailable: 90, Overrides: recommend.Overrides{Genre: 1.5}},
		Variant: "B",
		Experiment: &recommend.Assignment{
			ExperimentKey: "main", VariantKey: "bold",
			Config: recommend.ExperimentVariant{DiversityLevel: "bold"},
		},
		Mode:      "evening_program",
		CreatedAt: testNow,
	}
	if err := db.CreateSession(ctx, want); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetSession() = %+v, want %+v", got, want)
	}

	if _, err := db.GetSession(ctx, "nope"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetSession(nope) error = %v, want ErrNotFound", err)
	}
}

func TestSessions_Items(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.CreateSession(ctx, &recommend.Session{ID: "s1", UserID: "u1", Variant: "A", CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	items := []recommend.SessionItem{
		testItem("i1", "s1", "t1", 0, testNow),
		testItem("i2", "s1", "t2", 1, testNow),
	}
	if err := db.CreateItems(ctx, items); err != nil {
		t.Fatalf("CreateItems() error = %v", err)
	}

	dup := testItem("i3", "s1", "t1", 2, testNow)
	if err := db.CreateItem(ctx, &dup); !errors.Is(err, recommend.ErrConflict) {
		t.Fatalf("duplicate CreateItem() error = %v, want ErrConflict", err)
	}

	extra := testItem("i4", "s1", "t3", 2, testNow.Add(time.Minute))
	extra.Role = "dessert"
	if err := db.CreateItem(ctx, &extra); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	list, err := db.ListItems(ctx, "s1")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != "i1" || list[2].Role != "dessert" {
		t.Fatalf("ListItems() = %+v", list)
	}
	if !reflect.DeepEqual(list[0].Signals, items[0].Signals) {
		t.Errorf("Signals = %+v, want %+v", list[0].Signals, items[0].Signals)
	}

	if err := db.MarkReplaced(ctx, "s1", "t2"); err != nil {
		t.Fatalf("MarkReplaced() error = %v", err)
	}
	found, err := db.FindItem(ctx, "s1", "t2")
	if err != nil {
		t.Fatalf("FindItem() error = %v", err)
	}
	if !found.Replaced {
		t.Error("item should be marked replaced")
	}
	if _, err := db.FindItem(ctx, "s1", "t9"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("FindItem(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessions_CreateItemsIsAtomic(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	items := []recommend.SessionItem{
		testItem("i1", "s1", "t1", 0, testNow),
		testItem("i2", "s1", "t1", 1, testNow),
	}
	if err := db.CreateItems(ctx, items); !errors.Is(err, recommend.ErrConflict) {
		t.Fatalf("CreateItems() error = %v, want ErrConflict", err)
	}
	list, err := db.ListItems(ctx, "s1")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListItems() = %d rows, want rollback to leave none", len(list))
	}
}

func TestSessions_RecentServedTitleIDs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	for i, s := range []recommend.Session{
		{ID: "s1", UserID: "u1", Variant: "A", CreatedAt: testNow},
		{ID: "s2", UserID: "u1", Variant: "A", CreatedAt: testNow.Add(time.Hour)},
		{ID: "s3", UserID: "u2", Variant: "A", CreatedAt: testNow.Add(2 * time.Hour)},
	} {
		if err := db.CreateSession(ctx, &s); err != nil {
			t.Fatalf("CreateSession(%d) error = %v", i, err)
		}
	}
	items := []recommend.SessionItem{
		testItem("a", "s1", "t1", 0, testNow),
		testItem("b", "s1", "t2", 1, testNow),
		testItem("c", "s2", "t3", 0, testNow.Add(time.Hour)),
		testItem("d", "s3", "t4", 0, testNow.Add(2*time.Hour)),
	}
	if err := db.CreateItems(ctx, items); err != nil {
		t.Fatalf("CreateItems() error = %v", err)
	}

	got, err := db.RecentServedTitleIDs(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentServedTitleIDs() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"t3", "t1"}) {
		t.Errorf("RecentServedTitleIDs() = %v, want [t3 t1]", got)
	}
}

func TestExperiments(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetExperiment(ctx, "main"); !errors.Is(err, recommend.ErrNotFound) {
		t.Fatalf("GetExperiment(missing) error = %v, want ErrNotFound", err)
	}

	exp := &recommend.Experiment{
		Key:    "main",
		Active: true,
		Variants: map[string]recommend.ExperimentVariant{
			"control": {},
			"bold":    {DiversityLevel: "bold", NoveltyBias: "surprise"},
		},
	}
	if err := db.UpsertExperiment(ctx, exp); err != nil {
		t.Fatalf("UpsertExperiment() error = %v", err)
	}
	got, err := db.GetExperiment(ctx, "main")
	if err != nil {
		t.Fatalf("GetExperiment() error = %v", err)
	}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("GetExperiment() = %+v, want %+v", got, exp)
	}

	// corrupt definitions surface as Invalid, not as an error
	if _, err := db.Conn().ExecContext(ctx, `UPDATE experiments SET variants = 'not json' WHERE experiment_key = 'main'`); err != nil {
		t.Fatalf("corrupt experiment: %v", err)
	}
	got, err = db.GetExperiment(ctx, "main")
	if err != nil {
		t.Fatalf("GetExperiment(corrupt) error = %v", err)
	}
	if !got.Invalid {
		t.Error("corrupt experiment should be flagged Invalid")
	}
}

func TestAssignments(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	a := recommend.Assignment{ExperimentKey: "main", VariantKey: "bold", Config: recommend.ExperimentVariant{DiversityLevel: "bold"}}

	if _, err := db.GetAssignment(ctx, "u1", "main"); !errors.Is(err, recommend.ErrNotFound) {
		t.Fatalf("GetAssignment(missing) error = %v, want ErrNotFound", err)
	}
	if err := db.CreateAssignment(ctx, "u1", a); err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	other := a
	other.VariantKey = "control"
	if err := db.CreateAssignment(ctx, "u1", other); !errors.Is(err, recommend.ErrConflict) {
		t.Fatalf("second CreateAssignment() error = %v, want ErrConflict", err)
	}
	got, err := db.GetAssignment(ctx, "u1", "main")
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if !reflect.DeepEqual(*got, a) {
		t.Errorf("GetAssignment() = %+v, want %+v", *got, a)
	}
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	for i, v := range []recommend.Verdict{recommend.VerdictLike, recommend.VerdictDislike, recommend.VerdictWatched} {
		value := 1
		if v == recommend.VerdictDislike {
			value = -1
		}
		e := &recommend.FeedbackEvent{
			ID: string(rune('a' + i)), UserID: "u1", TitleID: "t1", Value: value, Verdict: v,
			Context: recommend.FeedbackContextCard, CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			e.SessionID = "s1"
		}
		if err := db.RecordFeedback(ctx, e); err != nil {
			t.Fatalf("RecordFeedback() error = %v", err)
		}
	}

	got, err := db.ListFeedback(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListFeedback() error = %v", err)
	}
	if len(got) != 2 || got[0].Verdict != recommend.VerdictWatched || got[1].Value != -1 {
		t.Errorf("ListFeedback() = %+v", got)
	}

	all, err := db.ListFeedback(ctx, "u1", 100)
	if err != nil {
		t.Fatalf("ListFeedback() error = %v", err)
	}
	if len(all) != 3 || all[2].SessionID != "s1" {
		t.Errorf("oldest event = %+v, want session s1", all[len(all)-1])
	}
}
