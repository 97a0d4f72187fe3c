// ABOUTME: Tests for the local-first repositories.
// ABOUTME: Uses a temp SQLite store, the in-memory remote and a recording pusher.
package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

type recordingPusher struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPusher) Schedule(family, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, family+"/"+id)
}

func (p *recordingPusher) scheduled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type staticOnline bool

func (s staticOnline) IsInternetAvailable() bool { return bool(s) }

type fixture struct {
	deps   Deps
	store  *storage.Store
	remote *remote.Memory
	pusher *recordingPusher
	hook   *test.Hook
	now    time.Time
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "fitsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	f := &fixture{
		store:  store,
		remote: remote.NewMemory(),
		pusher: &recordingPusher{},
		hook:   hook,
		now:    time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
	}
	f.deps = Deps{
		Store:  store,
		Remote: f.remote,
		Online: staticOnline(online),
		Pusher: f.pusher,
		Log:    log,
		Now:    func() time.Time { return f.now },
	}
	return f
}

func warnings(h *test.Hook) []string {
	var out []string
	for _, e := range h.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestCreateAssignsIDMarksDirtyAndSchedulesPush(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	cats := NewCategoryRepository(f.deps)

	c, err := cats.Create(ctx, &models.WorkoutCategory{UserID: "u1", Name: "Climbing", Color: "#00ACC1"})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	assert.Equal(t, f.now, c.CreatedAt)

	row, err := f.store.Categories.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, row.NeedsSync)
	assert.Zero(t, row.LastSyncTime)
	assert.Equal(t, []string{remote.CollectionCategories + "/" + c.ID}, f.pusher.scheduled())
}

func TestCreateRejectsOrphans(t *testing.T) {
	f := newFixture(t, false)
	_, err := NewTemplateRepository(f.deps).Create(context.Background(), &models.WorkoutTemplate{Name: "Legs"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, f.pusher.scheduled())
}

func TestUpdateRequiresExistingEntity(t *testing.T) {
	f := newFixture(t, false)
	_, err := NewTemplateRepository(f.deps).Update(context.Background(), &models.WorkoutTemplate{ID: "nope", UserID: "u1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOfflineMissDoesNotTouchRemote(t *testing.T) {
	f := newFixture(t, false)
	f.remote.FailGet = func(string, string) error {
		t.Fatal("remote must not be consulted offline")
		return nil
	}
	_, err := NewWorkoutRepository(f.deps).Get(context.Background(), "w1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOnlineMissBackfillsClean(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	tpl := &models.WorkoutTemplate{ID: "t1", UserID: "u1", Name: "Push", CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.remote.Put(ctx, remote.CollectionTemplates, "t1", mapper.TemplateToDocument(tpl)))

	got, err := NewTemplateRepository(f.deps).Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Push", got.Name)

	row, err := f.store.Templates.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, row.NeedsSync)
	assert.Equal(t, f.now.UnixMilli(), row.LastSyncTime)
	assert.Empty(t, f.pusher.scheduled(), "backfill is not a local change")
}

func TestGetRemoteFailureIsLoggedAndSwallowed(t *testing.T) {
	f := newFixture(t, true)
	f.remote.FailGet = func(string, string) error { return errors.New("503") }

	_, err := NewWorkoutRepository(f.deps).Get(context.Background(), "w1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, warnings(f.hook), "remote read failed")
}

func TestGetSkipsMalformedRemoteDocument(t *testing.T) {
	f := newFixture(t, true)
	f.remote.Raw(remote.CollectionWorkouts, "w1", remote.Document{"name": "no id"})

	_, err := NewWorkoutRepository(f.deps).Get(context.Background(), "w1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, warnings(f.hook), "skipping malformed remote document")
}

func TestDeleteTombstonesAndHidesEntity(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	templates := NewTemplateRepository(f.deps)

	tpl, err := templates.Create(ctx, &models.WorkoutTemplate{UserID: "u1", Name: "Pull"})
	require.NoError(t, err)
	require.NoError(t, templates.Delete(ctx, tpl.ID))

	_, err = templates.Get(ctx, tpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := templates.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	row, err := f.store.Templates.Lookup(ctx, tpl.ID)
	require.NoError(t, err)
	assert.True(t, row.Deleted)
	assert.True(t, row.NeedsSync)

	assert.ErrorIs(t, templates.Delete(ctx, tpl.ID), ErrNotFound)
}

func TestListSkipsMalformedRows(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.store.Templates.Put(ctx, &storage.TemplateRow{ID: "bad", UserID: "u1", Exercises: "{oops"}))
	require.NoError(t, f.store.Templates.Put(ctx, &storage.TemplateRow{ID: "good", UserID: "u1", Exercises: "[]"}))

	list, err := NewTemplateRepository(f.deps).ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].ID)
	assert.Contains(t, warnings(f.hook), "skipping malformed local row")
}

func TestWatchStreamsSnapshots(t *testing.T) {
	f := newFixture(t, false)
	cats := NewCategoryRepository(f.deps)
	ctx, cancel := context.WithCancel(context.Background())

	ch := cats.Watch(ctx, "u1")
	first := <-ch
	assert.Empty(t, first)

	_, err := cats.Create(context.Background(), models.NewWorkoutCategory("u1", "Yoga", "#8E24AA"))
	require.NoError(t, err)

	select {
	case next := <-ch:
		require.Len(t, next, 1)
		assert.Equal(t, "Yoga", next[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}

	cancel()
	for range ch {
	}
}

func TestEnsureUserBuildsGraphOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	users := NewUserRepository(f.deps)

	u, err := users.EnsureUser(ctx, "Harper@Example.com ", models.ProviderGoogle, "Harper")
	require.NoError(t, err)
	again, err := users.EnsureUser(ctx, "harper@example.com", models.ProviderGoogle, "Harper")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	stats, err := users.StatsFor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.StatsID, stats.ID)
	assert.Equal(t, 1, stats.Level)

	profile, err := users.ProfileFor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harper", profile.DisplayName)

	_, err = users.EnsureUser(ctx, "  ", models.ProviderEmail, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEnsureUserKeepsAccountsApart(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	users := NewUserRepository(f.deps)
	faker := gofakeit.New(42)

	byEmail := map[string]string{}
	for len(byEmail) < 15 {
		email := faker.Email()
		if _, seen := byEmail[email]; seen {
			continue
		}
		u, err := users.EnsureUser(ctx, email, models.ProviderEmail, faker.Name())
		require.NoError(t, err)
		byEmail[email] = u.ID
	}

	ids := map[string]bool{}
	for email, id := range byEmail {
		assert.False(t, ids[id], "duplicate id for %s", email)
		ids[id] = true

		found, err := users.FindByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
	}
}

func TestAddXPRecomputesLevel(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	users := NewUserRepository(f.deps)
	u, err := users.EnsureUser(ctx, "lvl@example.com", models.ProviderEmail, "")
	require.NoError(t, err)

	stats, err := users.AddXP(ctx, u.ID, 1100)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), stats.ExperiencePoints)
	assert.Equal(t, 3, stats.Level)

	f.now = f.now.Add(time.Hour)
	auth, err := users.RecordLogin(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, f.now, auth.LastLoginAt)
}

func TestSingleActiveSessionPerUser(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	workouts := NewWorkoutRepository(f.deps)

	first, err := workouts.Start(ctx, models.NewWorkout("u1", "Morning"))
	require.NoError(t, err)
	_, err = workouts.Start(ctx, models.NewWorkout("u1", "Second"))
	assert.ErrorIs(t, err, ErrSessionActive)

	_, err = workouts.Start(ctx, models.NewWorkout("u2", "Other user"))
	require.NoError(t, err)

	active, err := workouts.ActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	first.Finish(first.StartTime.Add(30 * time.Minute))
	_, err = workouts.Update(ctx, first)
	require.NoError(t, err)
	_, err = workouts.ActiveSession(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	done, err := workouts.ListCompleted(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, done, 1)
}

func TestRecentOrdersAndLimits(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	workouts := NewWorkoutRepository(f.deps)
	base := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		w := models.NewWorkout("u1", "w")
		w.StartTime = base.AddDate(0, 0, i)
		w.Finish(w.StartTime.Add(time.Hour))
		_, err := workouts.Create(ctx, w)
		require.NoError(t, err)
	}

	recent, err := workouts.Recent(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].StartTime.After(recent[1].StartTime))
	assert.Equal(t, base.AddDate(0, 0, 3).UnixMilli(), recent[0].StartTime.UnixMilli())
}

func TestDefaultCategoriesSeededAndProtected(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	cats := NewCategoryRepository(f.deps)

	seeded, err := cats.EnsureDefaults(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, seeded, len(models.DefaultCategories))
	again, err := cats.EnsureDefaults(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again, len(models.DefaultCategories))

	assert.ErrorIs(t, cats.Delete(ctx, seeded[0].ID), ErrInvalid)

	custom, err := cats.Create(ctx, models.NewWorkoutCategory("u1", "Swim", "#039BE5"))
	require.NoError(t, err)
	assert.NoError(t, cats.Delete(ctx, custom.ID))
}

func TestTemplatesByCategory(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	templates := NewTemplateRepository(f.deps)
	for _, tpl := range []*models.WorkoutTemplate{
		{UserID: "u1", Name: "A", CategoryID: "strength"},
		{UserID: "u1", Name: "B", CategoryID: "cardio"},
		{UserID: "u1", Name: "C", CategoryID: "strength"},
	} {
		_, err := templates.Create(ctx, tpl)
		require.NoError(t, err)
	}
	got, err := templates.ListByCategory(ctx, "u1", "strength")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAchievementDefinitionsAndProgress(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ach := NewAchievementRepository(f.deps)

	n, err := ach.SeedDefinitions(ctx, models.DefaultAchievements())
	require.NoError(t, err)
	assert.Equal(t, len(models.DefaultAchievements()), n)
	n, err = ach.SeedDefinitions(ctx, models.DefaultAchievements())
	require.NoError(t, err)
	assert.Zero(t, n)

	dirty, err := f.store.Achievements.ListDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty, "seeded catalog is clean")

	_, err = ach.SetActive(ctx, "workouts_50", false)
	require.NoError(t, err)
	active, err := ach.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, len(models.DefaultAchievements())-1)

	def, awarded, err := ach.Award(ctx, "u1", "first_template")
	require.NoError(t, err)
	assert.True(t, awarded)
	assert.Equal(t, int64(25), def.XPReward)
	_, awarded, err = ach.Award(ctx, "u1", "first_template")
	require.NoError(t, err)
	assert.False(t, awarded)

	p, err := ach.Progress(ctx, "u1", "first_template")
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)

	p.IsCompleted = false
	p.CompletedAt = nil
	saved, err := ach.SaveProgress(ctx, p)
	require.NoError(t, err)
	assert.True(t, saved.IsCompleted, "completion never reverts")
	assert.NotNil(t, saved.CompletedAt)

	removed, err := ach.ClearLocal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	defs, err := ach.Definitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, len(models.DefaultAchievements()))
}

func TestResolveByPrefix(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	cats := NewCategoryRepository(f.deps)

	for _, id := range []string{"abc-1", "abd-2"} {
		_, err := cats.Create(ctx, &models.WorkoutCategory{ID: id, UserID: "u1", Name: id})
		require.NoError(t, err)
	}
	_, err := cats.Create(ctx, &models.WorkoutCategory{ID: "abe-3", UserID: "u2", Name: "other"})
	require.NoError(t, err)

	got, err := cats.Resolve(ctx, "u1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", got.ID)

	got, err = cats.Resolve(ctx, "u1", "abd-2")
	require.NoError(t, err)
	assert.Equal(t, "abd-2", got.ID)

	_, err = cats.Resolve(ctx, "u1", "ab")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = cats.Resolve(ctx, "u1", "abe-3")
	assert.ErrorIs(t, err, ErrNotFound)
}
