// ABOUTME: Tests for the workout session flow.
// ABOUTME: Verifies template plans, stats aggregation, XP and achievement unlocks.
package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/fitsync/internal/achievements"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/repository"
	"github.com/harperreed/fitsync/internal/storage"
)

type fixture struct {
	tracker   *Tracker
	workouts  *repository.WorkoutRepository
	templates *repository.TemplateRepository
	users     *repository.UserRepository
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "fitsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log, _ := test.NewNullLogger()
	f := &fixture{now: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)}
	now := func() time.Time { return f.now }
	deps := repository.Deps{Store: store, Log: log, Now: now}

	ach := repository.NewAchievementRepository(deps)
	_, err = ach.SeedDefinitions(context.Background(), models.DefaultAchievements())
	require.NoError(t, err)

	f.workouts = repository.NewWorkoutRepository(deps)
	f.templates = repository.NewTemplateRepository(deps)
	f.users = repository.NewUserRepository(deps)
	eval := achievements.New(achievements.Options{
		Achievements: ach, Workouts: f.workouts, Users: f.users,
		Location: time.UTC, Log: log, Now: now,
	})
	f.tracker = New(Options{
		Workouts: f.workouts, Templates: f.templates, Users: f.users, Evaluator: eval,
		Location: time.UTC, Log: log, Now: now,
	})
	return f
}

func bench(weights ...float64) models.CompletedExercise {
	e := models.CompletedExercise{ExerciseID: "bench_press", Name: "Bench Press"}
	for _, w := range weights {
		e.Sets = append(e.Sets, models.WorkoutSet{Type: models.SetNormal, Weight: w, Reps: 5})
	}
	return e
}

func TestStartWorkoutCopiesTemplatePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl, err := f.templates.Create(ctx, &models.WorkoutTemplate{
		UserID: "u1", Name: "Push Day", CategoryID: "cat-strength",
		Exercises: []models.TemplateExercise{{ExerciseID: "bench_press", Name: "Bench Press",
			Sets: []models.WorkoutSet{{Weight: 80, Reps: 5}}}},
	})
	require.NoError(t, err)

	w, err := f.tracker.StartWorkout(ctx, "u1", "", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Push Day", w.Name)
	assert.Equal(t, tpl.ID, w.TemplateID)
	assert.Equal(t, "cat-strength", w.CategoryID)
	require.Len(t, w.Exercises, 1)
	assert.Equal(t, 80.0, w.Exercises[0].Sets[0].Weight)
	assert.True(t, w.InProgress())

	_, err = f.tracker.StartWorkout(ctx, "u1", "Second", "")
	assert.ErrorIs(t, err, repository.ErrSessionActive)
}

func TestStartWorkoutRejectsForeignTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl, err := f.templates.Create(ctx, &models.WorkoutTemplate{UserID: "u2", Name: "Theirs"})
	require.NoError(t, err)

	_, err = f.tracker.StartWorkout(ctx, "u1", "", tpl.ID)
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

func TestFinishWorkoutGrantsXPAndUnlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.tracker.StartWorkout(ctx, "u1", "Long Push", "")
	require.NoError(t, err)

	res, err := f.tracker.FinishWorkout(ctx, w.ID, []models.CompletedExercise{bench(90, 100)}, f.now.Add(3700*time.Second))
	require.NoError(t, err)
	assert.False(t, res.Workout.InProgress())
	assert.Equal(t, int64(3700), res.Workout.Duration)
	assert.Equal(t, int64(50+3700/300), res.XP)

	var unlocked []string
	var bonus int64
	for _, u := range res.Unlocked {
		unlocked = append(unlocked, u.Definition.ID)
		bonus += u.XP
	}
	assert.ElementsMatch(t, []string{"first_workout", "workout_hour", "bench_100"}, unlocked)

	assert.Equal(t, 1, res.Stats.TotalWorkouts)
	assert.Equal(t, int64(3700), res.Stats.TotalWorkoutTime)
	assert.Equal(t, res.XP+bonus, res.Stats.ExperiencePoints)
	assert.Equal(t, models.LevelForXP(res.Stats.ExperiencePoints), res.Stats.Level)
	assert.Equal(t, 100.0, res.Stats.Exercises["bench_press"].BestWeight)

	_, err = f.tracker.FinishWorkout(ctx, w.ID, nil, time.Time{})
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

func TestLogWorkoutRequiresEndOrDuration(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.LogWorkout(context.Background(), &models.CompletedWorkout{UserID: "u1", StartTime: f.now})
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

func TestLogWorkoutUsesDuration(t *testing.T) {
	f := newFixture(t)
	res, err := f.tracker.LogWorkout(context.Background(), &models.CompletedWorkout{
		UserID: "u1", Name: "Run", StartTime: f.now.Add(-time.Hour), Duration: 1800,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Workout.EndTime)
	assert.Equal(t, f.now.Add(-30*time.Minute), *res.Workout.EndTime)
	assert.Equal(t, 1, res.Stats.TotalWorkouts)
}

func TestLogWorkoutRejectsExistingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.tracker.LogWorkout(ctx, &models.CompletedWorkout{
		ID: "w-fixed", UserID: "u1", Name: "Run", StartTime: f.now.Add(-time.Hour), Duration: 1800,
	})
	require.NoError(t, err)

	_, err = f.tracker.LogWorkout(ctx, &models.CompletedWorkout{
		ID: "w-fixed", UserID: "u1", Name: "Run again", StartTime: f.now.Add(-time.Hour), Duration: 1800,
	})
	assert.ErrorIs(t, err, repository.ErrInvalid)

	stats, err := f.users.StatsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Stats.ExperiencePoints, stats.ExperiencePoints)
	assert.Equal(t, 1, stats.TotalWorkouts)
	got, err := f.workouts.Get(ctx, "w-fixed")
	require.NoError(t, err)
	assert.Equal(t, "Run", got.Name)
}

func TestAggregate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, loc)
	mk := func(day int, cat string, dur int64, ex ...models.CompletedExercise) *models.CompletedWorkout {
		start := time.Date(2026, 3, day, 8, 0, 0, 0, loc)
		w := &models.CompletedWorkout{ID: cat + string(rune('a'+day)), StartTime: start, CategoryID: cat, Exercises: ex}
		w.Finish(start.Add(time.Duration(dur) * time.Second))
		return w
	}
	done := []*models.CompletedWorkout{
		mk(1, "strength", 1200, bench(60, 70)),
		mk(2, "strength", 1800, bench(80)),
		mk(4, "", 600),
		mk(5, "cardio", 900),
	}

	stats := models.NewUserStats("u1")
	stats.ExperiencePoints = 700
	Aggregate(stats, done, now, loc)

	assert.Equal(t, 4, stats.TotalWorkouts)
	assert.Equal(t, int64(4500), stats.TotalWorkoutTime)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
	assert.Equal(t, int64(700), stats.ExperiencePoints)
	require.NotNil(t, stats.LastWorkoutDate)
	assert.Equal(t, 5, stats.LastWorkoutDate.Day())

	assert.Equal(t, models.WorkoutTypeStats{Count: 2, TotalDuration: 3000}, stats.WorkoutTypes["strength"])
	assert.Equal(t, 1, stats.WorkoutTypes[UncategorizedKey].Count)

	b := stats.Exercises["bench_press"]
	assert.Equal(t, 80.0, b.BestWeight)
	assert.Equal(t, 2, b.Sessions)
	assert.Equal(t, 1.5, b.AverageSets)
	assert.Equal(t, 5.0, b.AverageReps)
	require.Len(t, b.WeightHistory, 2)
	assert.Equal(t, 70.0, b.WeightHistory[0].Weight)
	assert.Equal(t, 80.0, b.WeightHistory[1].Weight)
}
