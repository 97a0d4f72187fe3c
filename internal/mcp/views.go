// ABOUTME: JSON views of domain types returned by tools and resources.
// ABOUTME: Times are RFC 3339; durations are seconds.
package mcp

import (
	"time"

	"github.com/harperreed/fitsync/internal/achievements"
	"github.com/harperreed/fitsync/internal/models"
)

type setView struct {
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

type exerciseView struct {
	ExerciseID string    `json:"exercise_id"`
	Name       string    `json:"name,omitempty"`
	Sets       []setView `json:"sets"`
}

type workoutView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CategoryID string         `json:"category_id,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	StartedAt  string         `json:"started_at"`
	EndedAt    string         `json:"ended_at,omitempty"`
	InProgress bool           `json:"in_progress"`
	Duration   int64          `json:"duration_seconds"`
	Exercises  []exerciseView `json:"exercises"`
}

func toWorkoutView(w *models.CompletedWorkout) workoutView {
	v := workoutView{
		ID:         w.ID,
		Name:       w.Name,
		CategoryID: w.CategoryID,
		TemplateID: w.TemplateID,
		StartedAt:  w.StartTime.Format(time.RFC3339),
		InProgress: w.InProgress(),
		Duration:   w.Duration,
		Exercises:  make([]exerciseView, 0, len(w.Exercises)),
	}
	if w.EndTime != nil {
		v.EndedAt = w.EndTime.Format(time.RFC3339)
	}
	for _, e := range w.Exercises {
		ev := exerciseView{ExerciseID: e.ExerciseID, Name: e.Name, Sets: make([]setView, 0, len(e.Sets))}
		for _, s := range e.Sets {
			ev.Sets = append(ev.Sets, setView{Type: string(s.Type), Weight: s.Weight, Reps: s.Reps})
		}
		v.Exercises = append(v.Exercises, ev)
	}
	return v
}

func toWorkoutViews(ws []*models.CompletedWorkout) []workoutView {
	out := make([]workoutView, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWorkoutView(w))
	}
	return out
}

func fromExerciseInputs(in []exerciseView) []models.CompletedExercise {
	if in == nil {
		return nil
	}
	out := make([]models.CompletedExercise, 0, len(in))
	for _, e := range in {
		ce := models.CompletedExercise{ExerciseID: e.ExerciseID, Name: e.Name}
		for _, s := range e.Sets {
			ce.Sets = append(ce.Sets, models.WorkoutSet{Type: models.ParseSetType(s.Type), Weight: s.Weight, Reps: s.Reps})
		}
		out = append(out, ce)
	}
	return out
}

type categoryView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
}

func toCategoryView(c *models.WorkoutCategory) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Color: c.Color, IsDefault: c.IsDefault}
}

type achievementView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Target      float64 `json:"target"`
	XPReward    int64   `json:"xp_reward"`
	Progress    float64 `json:"progress"`
	Completed   bool    `json:"completed"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

type unlockedView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	XP    int64  `json:"xp"`
}

func toUnlockedViews(us []achievements.Unlocked) []unlockedView {
	out := make([]unlockedView, 0, len(us))
	for _, u := range us {
		out = append(out, unlockedView{ID: u.Definition.ID, Title: u.Definition.Title, XP: u.XP})
	}
	return out
}

type exerciseStatsView struct {
	BestWeight  float64 `json:"best_weight"`
	AverageReps float64 `json:"average_reps"`
	AverageSets float64 `json:"average_sets"`
	Sessions    int     `json:"sessions"`
}

type statsView struct {
	Level            int                          `json:"level"`
	ExperiencePoints int64                        `json:"experience_points"`
	TotalWorkouts    int                          `json:"total_workouts"`
	CurrentStreak    int                          `json:"current_streak"`
	LongestStreak    int                          `json:"longest_streak"`
	TotalWorkoutTime int64                        `json:"total_workout_seconds"`
	LastWorkoutDate  string                       `json:"last_workout_date,omitempty"`
	Exercises        map[string]exerciseStatsView `json:"exercises,omitempty"`
}

func toStatsView(s *models.UserStats) statsView {
	v := statsView{
		Level:            s.Level,
		ExperiencePoints: s.ExperiencePoints,
		TotalWorkouts:    s.TotalWorkouts,
		CurrentStreak:    s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		TotalWorkoutTime: s.TotalWorkoutTime,
	}
	if s.LastWorkoutDate != nil {
		v.LastWorkoutDate = s.LastWorkoutDate.Format(time.RFC3339)
	}
	if len(s.Exercises) > 0 {
		v.Exercises = make(map[string]exerciseStatsView, len(s.Exercises))
		for id, e := range s.Exercises {
			v.Exercises[id] = exerciseStatsView{BestWeight: e.BestWeight, AverageReps: e.AverageReps, AverageSets: e.AverageSets, Sessions: e.Sessions}
		}
	}
	return v
}
