// ABOUTME: Achievement definitions and per-user progress.
// ABOUTME: Progress completion is monotonic once reached.
package models

import (
	"strings"
	"time"
)

// AchievementType selects the evaluation rule of a definition.
type AchievementType string

const (
	AchievementWorkoutCount    AchievementType = "WORKOUT_COUNT"
	AchievementWorkoutStreak   AchievementType = "WORKOUT_STREAK"
	AchievementMorningWorkouts AchievementType = "MORNING_WORKOUTS"
	AchievementExerciseWeight  AchievementType = "EXERCISE_WEIGHT"
	AchievementWorkoutDuration AchievementType = "WORKOUT_DURATION"
	AchievementFirstTime       AchievementType = "FIRST_TIME"
)

// ParseAchievementType parses a type tag. Unknown values fall back to
// AchievementFirstTime, which is never auto-evaluated.
func ParseAchievementType(s string) AchievementType {
	switch t := AchievementType(strings.ToUpper(strings.TrimSpace(s))); t {
	case AchievementWorkoutCount, AchievementWorkoutStreak, AchievementMorningWorkouts,
		AchievementExerciseWeight, AchievementWorkoutDuration, AchievementFirstTime:
		return t
	default:
		return AchievementFirstTime
	}
}

// AchievementDefinition is a globally shared achievement.
// Only IsActive may change after creation.
type AchievementDefinition struct {
	ID          string
	Title       string
	Description string
	Type        AchievementType
	Target      float64
	XPReward    int64
	Icon        string
	IsActive    bool
	ExerciseID  string
	CategoryID  string
	UpdatedAt   time.Time
}

// AchievementProgress tracks one user's progress toward one definition.
type AchievementProgress struct {
	ID            string
	UserID        string
	AchievementID string
	CurrentValue  float64
	IsCompleted   bool
	CompletedAt   *time.Time
	LastUpdated   time.Time
}

// ProgressID is the deterministic id of a user's progress on a definition,
// so every device converges on one record per pair.
func ProgressID(userID, achievementID string) string {
	return userID + "_" + achievementID
}

// NewAchievementProgress creates zero progress for a user and definition.
func NewAchievementProgress(userID, achievementID string) *AchievementProgress {
	return &AchievementProgress{
		ID:            ProgressID(userID, achievementID),
		UserID:        userID,
		AchievementID: achievementID,
		LastUpdated:   time.Now(),
	}
}

// Apply records a measured value. reached marks the target as met.
// It reports whether anything changed and whether this call completed the
// achievement. A completed achievement never reverts.
func (p *AchievementProgress) Apply(value float64, reached bool, now time.Time) (changed, justCompleted bool) {
	if value != p.CurrentValue {
		p.CurrentValue = value
		changed = true
	}
	if reached && !p.IsCompleted {
		p.IsCompleted = true
		p.CompletedAt = &now
		changed = true
		justCompleted = true
	}
	if changed {
		p.LastUpdated = now
	}
	return changed, justCompleted
}

// DefaultAchievements is the bundled achievement catalog.
func DefaultAchievements() []AchievementDefinition {
	return []AchievementDefinition{
		{ID: "first_workout", Title: "First Steps", Description: "Complete your first workout",
			Type: AchievementWorkoutCount, Target: 1, XPReward: 50, Icon: "trophy", IsActive: true},
		{ID: "workouts_10", Title: "Getting Serious", Description: "Complete 10 workouts",
			Type: AchievementWorkoutCount, Target: 10, XPReward: 200, Icon: "medal", IsActive: true},
		{ID: "workouts_50", Title: "Dedicated", Description: "Complete 50 workouts",
			Type: AchievementWorkoutCount, Target: 50, XPReward: 1000, Icon: "crown", IsActive: true},
		{ID: "workout_streak_3", Title: "On a Roll", Description: "Work out 3 days in a row",
			Type: AchievementWorkoutStreak, Target: 3, XPReward: 100, Icon: "flame", IsActive: true},
		{ID: "workout_streak_7", Title: "Unstoppable", Description: "Work out 7 days in a row",
			Type: AchievementWorkoutStreak, Target: 7, XPReward: 300, Icon: "flame", IsActive: true},
		{ID: "early_bird_5", Title: "Early Bird", Description: "Finish 5 workouts before 10am",
			Type: AchievementMorningWorkouts, Target: 5, XPReward: 150, Icon: "sunrise", IsActive: true},
		{ID: "workout_hour", Title: "Marathon Session", Description: "Train for an hour in one workout",
			Type: AchievementWorkoutDuration, Target: 3600, XPReward: 150, Icon: "clock", IsActive: true},
		{ID: "bench_100", Title: "Triple Digits", Description: "Bench press 100kg",
			Type: AchievementExerciseWeight, Target: 100, XPReward: 250, Icon: "dumbbell", IsActive: true,
			ExerciseID: "bench_press"},
		{ID: "first_template", Title: "Planner", Description: "Create your first workout template",
			Type: AchievementFirstTime, Target: 1, XPReward: 25, Icon: "clipboard", IsActive: true},
	}
}
