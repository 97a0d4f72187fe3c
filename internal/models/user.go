// ABOUTME: User identity, auth, profile and stats models.
// ABOUTME: UserStats carries the gamification counters and per-exercise aggregates.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthProvider tags how a user authenticated.
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
	ProviderApple  AuthProvider = "apple"
)

// ParseAuthProvider parses a provider tag, falling back to ProviderEmail.
func ParseAuthProvider(s string) AuthProvider {
	switch AuthProvider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderGoogle:
		return ProviderGoogle
	case ProviderApple:
		return ProviderApple
	default:
		return ProviderEmail
	}
}

// User links the auth record, profile and stats of one person.
type User struct {
	ID        string
	AuthID    string
	ProfileID string
	StatsID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth is the authentication record of a user.
type UserAuth struct {
	ID          string
	UserID      string
	Email       string
	Provider    AuthProvider
	CreatedAt   time.Time
	LastLoginAt time.Time
	Language    string
	UpdatedAt   time.Time
}

// UserProfile holds the user-facing profile fields.
type UserProfile struct {
	ID               string
	UserID           string
	DisplayName      string
	PhotoURL         string
	FavoriteBodyPart string
	UpdatedAt        time.Time
}

// WeightEntry is one point of an exercise's weight history.
type WeightEntry struct {
	Date   time.Time
	Weight float64
}

// ExerciseStats aggregates every completed session of one exercise.
type ExerciseStats struct {
	BestWeight    float64
	AverageReps   float64
	AverageSets   float64
	Sessions      int
	WeightHistory []WeightEntry
}

// WorkoutTypeStats aggregates completed workouts of one category.
type WorkoutTypeStats struct {
	Count         int
	TotalDuration int64 // seconds
}

// UserStats is the gamification and progress summary of a user.
type UserStats struct {
	ID               string
	UserID           string
	Level            int
	ExperiencePoints int64
	TotalWorkouts    int
	CurrentStreak    int
	LongestStreak    int
	LastWorkoutDate  *time.Time
	TotalWorkoutTime int64 // seconds
	WorkoutTypes     map[string]WorkoutTypeStats
	Exercises        map[string]ExerciseStats
	UpdatedAt        time.Time
}

// NewUserStats creates an empty stats record for a user.
func NewUserStats(userID string) *UserStats {
	return &UserStats{
		ID:           uuid.New().String(),
		UserID:       userID,
		Level:        1,
		WorkoutTypes: map[string]WorkoutTypeStats{},
		Exercises:    map[string]ExerciseStats{},
		UpdatedAt:    time.Now(),
	}
}

// XPPerLevel is the experience needed to advance one level.
const XPPerLevel = 500

// LevelForXP derives the level tier from cumulative experience points.
func LevelForXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	return 1 + int(xp/XPPerLevel)
}

// AddXP adds experience points and recomputes the level.
func (s *UserStats) AddXP(xp int64) {
	s.ExperiencePoints += xp
	s.Level = LevelForXP(s.ExperiencePoints)
}

// WorkoutXP is the experience granted for finishing a workout:
// 50 base points plus one per full five minutes of training.
func WorkoutXP(durationSeconds int64) int64 {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return 50 + durationSeconds/300
}
