// ABOUTME: Workout session flow: start from a template, finish, or log in one step.
// ABOUTME: Finishing recomputes stats, grants workout XP and runs the achievement evaluator.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/fitsync/internal/achievements"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/repository"
)

// UncategorizedKey keys per-type stats of workouts without a category.
const UncategorizedKey = "uncategorized"

// Options wire a Tracker.
type Options struct {
	Workouts  *repository.WorkoutRepository
	Templates *repository.TemplateRepository
	Users     *repository.UserRepository
	Evaluator *achievements.Evaluator
	Location  *time.Location
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// Tracker runs workout sessions from start to completion.
type Tracker struct {
	workouts  *repository.WorkoutRepository
	templates *repository.TemplateRepository
	users     *repository.UserRepository
	evaluator *achievements.Evaluator
	loc       *time.Location
	log       logrus.FieldLogger
	now       func() time.Time
}

// Result is the outcome of completing a workout.
type Result struct {
	Workout  *models.CompletedWorkout
	Stats    *models.UserStats
	XP       int64
	Unlocked []achievements.Unlocked
}

// New returns a Tracker; Location defaults to time.Local.
func New(opts Options) *Tracker {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		workouts:  opts.Workouts,
		templates: opts.Templates,
		users:     opts.Users,
		evaluator: opts.Evaluator,
		loc:       opts.Location,
		log:       opts.Log.WithField("component", "tracker"),
		now:       opts.Now,
	}
}

// StartWorkout opens a session. With a templateID the template's exercises
// and planned sets are copied in as the plan.
func (t *Tracker) StartWorkout(ctx context.Context, userID, name, templateID string) (*models.CompletedWorkout, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", repository.ErrInvalid)
	}
	now := t.now()
	w := &models.CompletedWorkout{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		StartTime: now,
		UpdatedAt: now,
	}
	if templateID != "" {
		tpl, err := t.templates.Get(ctx, templateID)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", templateID, err)
		}
		if tpl.UserID != userID {
			return nil, fmt.Errorf("%w: template %s belongs to another user", repository.ErrInvalid, templateID)
		}
		w.TemplateID = tpl.ID
		w.CategoryID = tpl.CategoryID
		if w.Name == "" {
			w.Name = tpl.Name
		}
		w.Exercises = planFrom(tpl)
	}
	if w.Name == "" {
		w.Name = "Workout"
	}

	started, err := t.workouts.Start(ctx, w)
	if err != nil {
		return nil, err
	}
	t.log.WithFields(logrus.Fields{"user": userID, "workout": started.ID, "template": templateID}).Info("workout started")
	return started, nil
}

func planFrom(tpl *models.WorkoutTemplate) []models.CompletedExercise {
	out := make([]models.CompletedExercise, 0, len(tpl.Exercises))
	for _, e := range tpl.Exercises {
		out = append(out, models.CompletedExercise{
			ExerciseID: e.ExerciseID,
			Name:       e.Name,
			Sets:       append([]models.WorkoutSet(nil), e.Sets...),
		})
	}
	return out
}

// FinishWorkout closes an in-progress session. Non-nil exercises replace the
// plan; a zero end means now.
func (t *Tracker) FinishWorkout(ctx context.Context, id string, exercises []models.CompletedExercise, end time.Time) (*Result, error) {
	w, err := t.workouts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.InProgress() {
		return nil, fmt.Errorf("%w: workout %s already finished", repository.ErrInvalid, id)
	}
	if exercises != nil {
		w.Exercises = exercises
	}
	if end.IsZero() {
		end = t.now()
	}
	w.Finish(end)
	if w, err = t.workouts.Save(ctx, w); err != nil {
		return nil, err
	}
	return t.complete(ctx, w)
}

// LogWorkout records an already finished workout in one step. Either
// EndTime or Duration must be set.
func (t *Tracker) LogWorkout(ctx context.Context, w *models.CompletedWorkout) (*Result, error) {
	if w.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", repository.ErrInvalid)
	}
	if w.StartTime.IsZero() {
		w.StartTime = t.now()
	}
	switch {
	case w.EndTime != nil:
		w.Finish(*w.EndTime)
	case w.Duration > 0:
		w.Finish(w.StartTime.Add(time.Duration(w.Duration) * time.Second))
	default:
		return nil, fmt.Errorf("%w: a logged workout needs an end time or duration", repository.ErrInvalid)
	}
	if w.Name == "" {
		w.Name = "Workout"
	}
	if w.ID != "" {
		_, err := t.workouts.Get(ctx, w.ID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: workout %s already exists", repository.ErrInvalid, w.ID)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}
	saved, err := t.workouts.Create(ctx, w)
	if err != nil {
		return nil, err
	}
	return t.complete(ctx, saved)
}

func (t *Tracker) complete(ctx context.Context, w *models.CompletedWorkout) (*Result, error) {
	stats, err := t.RecomputeStats(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("recompute stats: %w", err)
	}
	xp := models.WorkoutXP(w.Duration)
	if _, err := t.users.AddXP(ctx, w.UserID, xp); err != nil {
		return nil, fmt.Errorf("grant workout xp: %w", err)
	}

	unlocked, err := t.evaluator.Evaluate(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}
	if stats, err = t.users.StatsFor(ctx, w.UserID); err != nil {
		return nil, err
	}
	t.log.WithFields(logrus.Fields{
		"user":     w.UserID,
		"workout":  w.ID,
		"duration": w.Duration,
		"xp":       xp,
		"unlocked": len(unlocked),
	}).Info("workout finished")
	return &Result{Workout: w, Stats: stats, XP: xp, Unlocked: unlocked}, nil
}

// RecomputeStats rebuilds the user's aggregates from every finished workout.
// Experience points and level are kept.
func (t *Tracker) RecomputeStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := t.users.StatsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	done, err := t.workouts.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	Aggregate(stats, done, t.now(), t.loc)
	return t.users.Stats.Save(ctx, stats)
}

// Aggregate overwrites the workout-derived fields of stats from done.
func Aggregate(stats *models.UserStats, done []*models.CompletedWorkout, now time.Time, loc *time.Location) {
	stats.TotalWorkouts = 0
	stats.TotalWorkoutTime = 0
	stats.LastWorkoutDate = nil
	stats.WorkoutTypes = map[string]models.WorkoutTypeStats{}

	type acc struct {
		best     float64
		reps     int
		sets     int
		sessions int
		history  []models.WeightEntry
	}
	exercises := map[string]*acc{}
	var finished []time.Time

	for _, w := range done {
		if w.EndTime == nil {
			continue
		}
		end := *w.EndTime
		stats.TotalWorkouts++
		stats.TotalWorkoutTime += w.Duration
		finished = append(finished, end)
		if stats.LastWorkoutDate == nil || end.After(*stats.LastWorkoutDate) {
			last := end
			stats.LastWorkoutDate = &last
		}

		key := w.CategoryID
		if key == "" {
			key = UncategorizedKey
		}
		ts := stats.WorkoutTypes[key]
		ts.Count++
		ts.TotalDuration += w.Duration
		stats.WorkoutTypes[key] = ts

		for _, e := range w.Exercises {
			if e.ExerciseID == "" {
				continue
			}
			a := exercises[e.ExerciseID]
			if a == nil {
				a = &acc{}
				exercises[e.ExerciseID] = a
			}
			a.sessions++
			a.sets += len(e.Sets)
			for _, s := range e.Sets {
				a.reps += s.Reps
			}
			if best := e.MaxWeight(); best > 0 {
				if best > a.best {
					a.best = best
				}
				a.history = append(a.history, models.WeightEntry{Date: end, Weight: best})
			}
		}
	}

	stats.CurrentStreak = models.CurrentStreak(finished, now, loc)
	stats.LongestStreak = models.LongestStreak(finished, loc)

	stats.Exercises = make(map[string]models.ExerciseStats, len(exercises))
	for id, a := range exercises {
		sort.Slice(a.history, func(i, j int) bool { return a.history[i].Date.Before(a.history[j].Date) })
		es := models.ExerciseStats{
			BestWeight:    a.best,
			Sessions:      a.sessions,
			AverageSets:   float64(a.sets) / float64(a.sessions),
			WeightHistory: a.history,
		}
		if a.sets > 0 {
			es.AverageReps = float64(a.reps) / float64(a.sets)
		}
		stats.Exercises[id] = es
	}
}
