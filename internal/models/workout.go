// ABOUTME: Workout category, template and completed workout models.
// ABOUTME: Completed workouts embed their exercises and sets.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SetType tags how a set was performed.
type SetType string

const (
	SetNormal  SetType = "normal"
	SetWarmup  SetType = "warmup"
	SetDrop    SetType = "drop"
	SetFailure SetType = "failure"
)

// ParseSetType parses a set tag, falling back to SetNormal.
func ParseSetType(s string) SetType {
	switch SetType(strings.ToLower(strings.TrimSpace(s))) {
	case SetWarmup:
		return SetWarmup
	case SetDrop:
		return SetDrop
	case SetFailure:
		return SetFailure
	default:
		return SetNormal
	}
}

// WorkoutSet is a single set: type, weight and reps.
type WorkoutSet struct {
	Type   SetType
	Weight float64
	Reps   int
}

// WorkoutCategory groups templates and workouts.
type WorkoutCategory struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWorkoutCategory creates a category owned by userID.
func NewWorkoutCategory(userID, name, color string) *WorkoutCategory {
	now := time.Now()
	return &WorkoutCategory{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultCategories are seeded for every new user.
var DefaultCategories = []struct {
	Name  string
	Color string
}{
	{"Strength", "#E53935"},
	{"Cardio", "#1E88E5"},
	{"Flexibility", "#43A047"},
	{"HIIT", "#FB8C00"},
}

// TemplateExercise is an exercise with its planned sets.
type TemplateExercise struct {
	ExerciseID string
	Name       string
	Sets       []WorkoutSet
}

// WorkoutTemplate is a reusable workout plan.
type WorkoutTemplate struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CategoryID  string
	Exercises   []TemplateExercise
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompletedExercise is an exercise performed during a workout.
type CompletedExercise struct {
	ExerciseID string
	Name       string
	Sets       []WorkoutSet
}

// MaxWeight returns the heaviest set weight of the exercise.
func (e CompletedExercise) MaxWeight() float64 {
	var best float64
	for _, s := range e.Sets {
		if s.Weight > best {
			best = s.Weight
		}
	}
	return best
}

// CompletedWorkout is a workout session. EndTime is nil while in progress.
type CompletedWorkout struct {
	ID         string
	UserID     string
	Name       string
	TemplateID string
	CategoryID string
	StartTime  time.Time
	EndTime    *time.Time
	Duration   int64 // seconds
	Exercises  []CompletedExercise
	UpdatedAt  time.Time
}

// NewWorkout creates an in-progress workout starting now.
func NewWorkout(userID, name string) *CompletedWorkout {
	now := time.Now()
	return &CompletedWorkout{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		StartTime: now,
		UpdatedAt: now,
	}
}

// InProgress reports whether the session has not been finished.
func (w *CompletedWorkout) InProgress() bool {
	return w.EndTime == nil
}

// Finish stamps the end time and duration.
func (w *CompletedWorkout) Finish(end time.Time) {
	if end.Before(w.StartTime) {
		end = w.StartTime
	}
	w.EndTime = &end
	w.Duration = int64(end.Sub(w.StartTime) / time.Second)
}

// Exercise returns the exercise with the given id, if present.
func (w *CompletedWorkout) Exercise(exerciseID string) (CompletedExercise, bool) {
	for _, e := range w.Exercises {
		if e.ExerciseID == exerciseID {
			return e, true
		}
	}
	return CompletedExercise{}, false
}
