// ABOUTME: Completed workout repository with in-progress session tracking.
// ABOUTME: At most one in-progress session exists per user.
package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/storage"
)

// WorkoutRepository serves completed workouts and in-progress sessions.
type WorkoutRepository struct {
	*Entity[models.CompletedWorkout, storage.WorkoutRow, *storage.WorkoutRow]
}

// NewWorkoutRepository binds the workouts table.
func NewWorkoutRepository(deps Deps) *WorkoutRepository {
	deps = deps.withDefaults()
	return &WorkoutRepository{newEntity(deps, deps.Store.Workouts, mapper.Workouts)}
}

// Create persists a workout. An in-progress workout is rejected with
// ErrSessionActive while the user has another one open.
func (r *WorkoutRepository) Create(ctx context.Context, w *models.CompletedWorkout) (*models.CompletedWorkout, error) {
	if w.InProgress() {
		active, err := r.ActiveSession(ctx, w.UserID)
		if err == nil && active.ID != w.ID {
			return nil, fmt.Errorf("user %s: %w (%s)", w.UserID, ErrSessionActive, active.ID)
		}
	}
	return r.Entity.Create(ctx, w)
}

// Start opens a new in-progress session.
func (r *WorkoutRepository) Start(ctx context.Context, w *models.CompletedWorkout) (*models.CompletedWorkout, error) {
	if !w.InProgress() {
		return nil, fmt.Errorf("%w: workout %s already finished", ErrInvalid, w.ID)
	}
	return r.Create(ctx, w)
}

// ActiveSession returns the user's in-progress workout.
func (r *WorkoutRepository) ActiveSession(ctx context.Context, userID string) (*models.CompletedWorkout, error) {
	all, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, w := range all {
		if w.InProgress() {
			return w, nil
		}
	}
	return nil, fmt.Errorf("active session for %s: %w", userID, ErrNotFound)
}

// ListCompleted returns finished workouts, most recent first.
func (r *WorkoutRepository) ListCompleted(ctx context.Context, userID string) ([]*models.CompletedWorkout, error) {
	all, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	done := all[:0]
	for _, w := range all {
		if !w.InProgress() {
			done = append(done, w)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].StartTime.After(done[j].StartTime)
	})
	return done, nil
}

// Recent returns up to limit finished workouts, most recent first.
// A non-positive limit returns all of them.
func (r *WorkoutRepository) Recent(ctx context.Context, userID string, limit int) ([]*models.CompletedWorkout, error) {
	done, err := r.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(done) > limit {
		done = done[:limit]
	}
	return done, nil
}
