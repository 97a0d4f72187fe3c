// ABOUTME: Tests for the SQLite local store.
// ABOUTME: Verifies dirty tracking, version-guarded sync marks, tombstones and notifications.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fitsync.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutMarksDirty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &CategoryRow{ID: "c1", UserID: "u1", Name: "Strength", Color: "#E53935", CreatedAt: 1000, UpdatedAt: 1000}
	if err := s.Categories.Put(ctx, row); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !row.NeedsSync || row.Version != 1 {
		t.Errorf("after Put: NeedsSync=%v Version=%d, want true/1", row.NeedsSync, row.Version)
	}

	got, err := s.Categories.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Strength" || got.UserID != "u1" || !got.NeedsSync {
		t.Errorf("Get = %+v", got)
	}

	row.Name = "Power"
	if err := s.Categories.Put(ctx, row); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if row.Version != 2 {
		t.Errorf("Version = %d, want 2", row.Version)
	}
}

func TestMarkSyncedIsVersionGuarded(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &WorkoutRow{ID: "w1", UserID: "u1", Name: "Legs", StartTime: 1, Exercises: "[]", UpdatedAt: 1}
	if err := s.Workouts.Put(ctx, row); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	pushedVersion := row.Version

	// A local write lands while the push is in flight.
	row.Name = "Legs and core"
	if err := s.Workouts.Put(ctx, row); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	ok, err := s.Workouts.MarkSynced(ctx, "w1", pushedVersion, 5000)
	if err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	if ok {
		t.Error("MarkSynced with stale version should not apply")
	}

	ok, err = s.Workouts.MarkSynced(ctx, "w1", row.Version, 6000)
	if err != nil || !ok {
		t.Fatalf("MarkSynced current version: ok=%v err=%v", ok, err)
	}

	got, _ := s.Workouts.Get(ctx, "w1")
	if got.NeedsSync || got.LastSyncTime != 6000 {
		t.Errorf("after MarkSynced: NeedsSync=%v LastSyncTime=%d", got.NeedsSync, got.LastSyncTime)
	}

	dirty, err := s.Workouts.ListDirty(ctx)
	if err != nil {
		t.Fatalf("ListDirty failed: %v", err)
	}
	if len(dirty) != 0 {
		t.Errorf("ListDirty = %d rows, want 0", len(dirty))
	}
}

func TestPutCleanKeepsRowClean(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &TemplateRow{ID: "t1", UserID: "u1", Name: "Push", Exercises: "[]"}
	if err := s.Templates.PutClean(ctx, row, 4242); err != nil {
		t.Fatalf("PutClean failed: %v", err)
	}
	got, err := s.Templates.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.NeedsSync {
		t.Error("PutClean row is dirty")
	}
	if got.LastSyncTime != 4242 {
		t.Errorf("LastSyncTime = %d, want 4242", got.LastSyncTime)
	}

	// A later local write keeps the last sync stamp.
	if err := s.Templates.Put(ctx, got); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _ = s.Templates.Get(ctx, "t1")
	if !got.NeedsSync || got.LastSyncTime != 4242 {
		t.Errorf("after Put: NeedsSync=%v LastSyncTime=%d", got.NeedsSync, got.LastSyncTime)
	}
}

func TestTombstoneAndPurge(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &CategoryRow{ID: "c1", UserID: "u1", Name: "Cardio"}
	if err := s.Categories.PutClean(ctx, row, 1); err != nil {
		t.Fatalf("PutClean failed: %v", err)
	}
	if err := s.Categories.Tombstone(ctx, "c1"); err != nil {
		t.Fatalf("Tombstone failed: %v", err)
	}

	if _, err := s.Categories.Get(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get tombstoned row: err = %v, want ErrNotFound", err)
	}
	list, _ := s.Categories.ListByUser(ctx, "u1")
	if len(list) != 0 {
		t.Errorf("ListByUser returned tombstone")
	}

	tomb, err := s.Categories.Lookup(ctx, "c1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !tomb.Deleted || !tomb.NeedsSync {
		t.Errorf("tombstone meta = %+v", tomb.SyncMeta)
	}

	if err := s.Categories.Tombstone(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Tombstone: err = %v, want ErrNotFound", err)
	}

	ok, err := s.Categories.Purge(ctx, "c1", tomb.Version)
	if err != nil || !ok {
		t.Fatalf("Purge: ok=%v err=%v", ok, err)
	}
	if _, err := s.Categories.Lookup(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup after purge: err = %v", err)
	}
}

func TestDeleteByUserAndDirtyCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, r := range []*ProgressRow{
		{ID: "u1_a", UserID: "u1", AchievementID: "a"},
		{ID: "u1_b", UserID: "u1", AchievementID: "b"},
		{ID: "u2_a", UserID: "u2", AchievementID: "a"},
	} {
		if err := s.Progress.Put(ctx, r); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := s.Achievements.PutClean(ctx, &AchievementRow{ID: "a", Title: "A", IsActive: true}, 1); err != nil {
		t.Fatalf("PutClean failed: %v", err)
	}

	n, err := s.DirtyCount(ctx)
	if err != nil || n != 3 {
		t.Fatalf("DirtyCount = %d, %v; want 3", n, err)
	}

	removed, err := s.Progress.DeleteByUser(ctx, "u1")
	if err != nil || removed != 2 {
		t.Fatalf("DeleteByUser = %d, %v; want 2", removed, err)
	}
	if left, err := s.Progress.Count(ctx); err != nil || left != 1 {
		t.Errorf("Count after clear = %d, %v; want 1", left, err)
	}
	defs, _ := s.Achievements.ListAll(ctx)
	if len(defs) != 1 || !defs[0].IsActive {
		t.Errorf("definitions after clear = %+v", defs)
	}
	if _, err := s.Achievements.ListByUser(ctx, "u1"); err == nil {
		t.Error("ListByUser on global table should fail")
	}
}

func TestSubscribeSignalsWrites(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe(TableWorkouts)
	defer cancel()

	if err := s.Workouts.Put(ctx, &WorkoutRow{ID: "w1", UserID: "u1", Exercises: "[]"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal after Put")
	}

	// Writes to other tables do not signal.
	_ = s.Categories.Put(ctx, &CategoryRow{ID: "c1", UserID: "u1"})
	select {
	case <-ch:
		t.Fatal("unexpected signal from another table")
	default:
	}
}
