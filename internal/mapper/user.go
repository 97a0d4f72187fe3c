// ABOUTME: Conversions for users, auth records, profiles and stats.
// ABOUTME: Stats maps are JSON text locally and nested maps remotely.
package mapper

import (
	"fmt"
	"sort"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

func UserToRow(u *models.User) *storage.UserRow {
	return &storage.UserRow{
		ID:        u.ID,
		AuthID:    u.AuthID,
		ProfileID: u.ProfileID,
		StatsID:   u.StatsID,
		CreatedAt: millis(u.CreatedAt),
		UpdatedAt: millis(u.UpdatedAt),
	}
}

func UserFromRow(r *storage.UserRow) (*models.User, error) {
	return &models.User{
		ID:        r.ID,
		AuthID:    r.AuthID,
		ProfileID: r.ProfileID,
		StatsID:   r.StatsID,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}, nil
}

// UserToDocument also writes userId so the user collection can be listed
// by owner like every other per-user collection.
func UserToDocument(u *models.User) remote.Document {
	return remote.Document{
		"id":        u.ID,
		"userId":    u.ID,
		"authId":    u.AuthID,
		"profileId": u.ProfileID,
		"statsId":   u.StatsID,
		"createdAt": millis(u.CreatedAt),
		"updatedAt": millis(u.UpdatedAt),
	}
}

func UserFromDocument(d remote.Document) (*models.User, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        id,
		AuthID:    d.String("authId"),
		ProfileID: d.String("profileId"),
		StatsID:   d.String("statsId"),
		CreatedAt: fromMillis(d.Int64("createdAt")),
		UpdatedAt: fromMillis(d.Int64("updatedAt")),
	}, nil
}

func AuthToRow(a *models.UserAuth) *storage.UserAuthRow {
	return &storage.UserAuthRow{
		ID:          a.ID,
		UserID:      a.UserID,
		Email:       a.Email,
		Provider:    string(a.Provider),
		CreatedAt:   millis(a.CreatedAt),
		LastLoginAt: millis(a.LastLoginAt),
		Language:    a.Language,
		UpdatedAt:   millis(a.UpdatedAt),
	}
}

func AuthFromRow(r *storage.UserAuthRow) (*models.UserAuth, error) {
	return &models.UserAuth{
		ID:          r.ID,
		UserID:      r.UserID,
		Email:       r.Email,
		Provider:    models.ParseAuthProvider(r.Provider),
		CreatedAt:   fromMillis(r.CreatedAt),
		LastLoginAt: fromMillis(r.LastLoginAt),
		Language:    r.Language,
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}, nil
}

func AuthToDocument(a *models.UserAuth) remote.Document {
	return remote.Document{
		"id":          a.ID,
		"userId":      a.UserID,
		"email":       a.Email,
		"provider":    string(a.Provider),
		"createdAt":   millis(a.CreatedAt),
		"lastLoginAt": millis(a.LastLoginAt),
		"language":    a.Language,
		"updatedAt":   millis(a.UpdatedAt),
	}
}

func AuthFromDocument(d remote.Document) (*models.UserAuth, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	return &models.UserAuth{
		ID:          id,
		UserID:      d.String("userId"),
		Email:       d.String("email"),
		Provider:    models.ParseAuthProvider(d.String("provider")),
		CreatedAt:   fromMillis(d.Int64("createdAt")),
		LastLoginAt: fromMillis(d.Int64("lastLoginAt")),
		Language:    d.String("language"),
		UpdatedAt:   fromMillis(d.Int64("updatedAt")),
	}, nil
}

func ProfileToRow(p *models.UserProfile) *storage.ProfileRow {
	return &storage.ProfileRow{
		ID:               p.ID,
		UserID:           p.UserID,
		DisplayName:      p.DisplayName,
		PhotoURL:         p.PhotoURL,
		FavoriteBodyPart: p.FavoriteBodyPart,
		UpdatedAt:        millis(p.UpdatedAt),
	}
}

func ProfileFromRow(r *storage.ProfileRow) (*models.UserProfile, error) {
	return &models.UserProfile{
		ID:               r.ID,
		UserID:           r.UserID,
		DisplayName:      r.DisplayName,
		PhotoURL:         r.PhotoURL,
		FavoriteBodyPart: r.FavoriteBodyPart,
		UpdatedAt:        fromMillis(r.UpdatedAt),
	}, nil
}

func ProfileToDocument(p *models.UserProfile) remote.Document {
	return remote.Document{
		"id":               p.ID,
		"userId":           p.UserID,
		"displayName":      p.DisplayName,
		"photoUrl":         p.PhotoURL,
		"favoriteBodyPart": p.FavoriteBodyPart,
		"updatedAt":        millis(p.UpdatedAt),
	}
}

func ProfileFromDocument(d remote.Document) (*models.UserProfile, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		ID:               id,
		UserID:           d.String("userId"),
		DisplayName:      d.String("displayName"),
		PhotoURL:         d.String("photoUrl"),
		FavoriteBodyPart: d.String("favoriteBodyPart"),
		UpdatedAt:        fromMillis(d.Int64("updatedAt")),
	}, nil
}

func typeStatsToPayload(types map[string]models.WorkoutTypeStats) map[string]typeStatsPayload {
	out := make(map[string]typeStatsPayload, len(types))
	for k, v := range types {
		out[k] = typeStatsPayload{Count: v.Count, TotalDuration: v.TotalDuration}
	}
	return out
}

func typeStatsFromPayload(types map[string]typeStatsPayload) map[string]models.WorkoutTypeStats {
	out := make(map[string]models.WorkoutTypeStats, len(types))
	for k, v := range types {
		out[k] = models.WorkoutTypeStats{Count: v.Count, TotalDuration: v.TotalDuration}
	}
	return out
}

func exerciseStatsToPayload(ex map[string]models.ExerciseStats) map[string]exerciseStatsPayload {
	out := make(map[string]exerciseStatsPayload, len(ex))
	for k, v := range ex {
		history := make([]weightPayload, 0, len(v.WeightHistory))
		for _, w := range v.WeightHistory {
			history = append(history, weightPayload{Date: millis(w.Date), Weight: w.Weight})
		}
		out[k] = exerciseStatsPayload{
			BestWeight:    v.BestWeight,
			AverageReps:   v.AverageReps,
			AverageSets:   v.AverageSets,
			Sessions:      v.Sessions,
			WeightHistory: history,
		}
	}
	return out
}

func exerciseStatsFromPayload(ex map[string]exerciseStatsPayload) map[string]models.ExerciseStats {
	out := make(map[string]models.ExerciseStats, len(ex))
	for k, v := range ex {
		history := make([]models.WeightEntry, 0, len(v.WeightHistory))
		for _, w := range v.WeightHistory {
			history = append(history, models.WeightEntry{Date: fromMillis(w.Date), Weight: w.Weight})
		}
		out[k] = models.ExerciseStats{
			BestWeight:    v.BestWeight,
			AverageReps:   v.AverageReps,
			AverageSets:   v.AverageSets,
			Sessions:      v.Sessions,
			WeightHistory: history,
		}
	}
	return out
}

func StatsToRow(s *models.UserStats) (*storage.StatsRow, error) {
	types, err := encodeJSON(typeStatsToPayload(s.WorkoutTypes))
	if err != nil {
		return nil, fmt.Errorf("stats %s workout types: %w", s.ID, err)
	}
	exercises, err := encodeJSON(exerciseStatsToPayload(s.Exercises))
	if err != nil {
		return nil, fmt.Errorf("stats %s exercises: %w", s.ID, err)
	}
	return &storage.StatsRow{
		ID:               s.ID,
		UserID:           s.UserID,
		Level:            int64(s.Level),
		ExperiencePoints: s.ExperiencePoints,
		TotalWorkouts:    int64(s.TotalWorkouts),
		CurrentStreak:    int64(s.CurrentStreak),
		LongestStreak:    int64(s.LongestStreak),
		LastWorkoutDate:  millisPtr(s.LastWorkoutDate),
		TotalWorkoutTime: s.TotalWorkoutTime,
		WorkoutTypes:     types,
		Exercises:        exercises,
		UpdatedAt:        millis(s.UpdatedAt),
	}, nil
}

func StatsFromRow(r *storage.StatsRow) (*models.UserStats, error) {
	var types map[string]typeStatsPayload
	if err := decodeJSON(r.WorkoutTypes, &types); err != nil {
		return nil, fmt.Errorf("stats %s workout types: %w", r.ID, err)
	}
	var exercises map[string]exerciseStatsPayload
	if err := decodeJSON(r.Exercises, &exercises); err != nil {
		return nil, fmt.Errorf("stats %s exercises: %w", r.ID, err)
	}
	level := int(r.Level)
	if level < 1 {
		level = 1
	}
	return &models.UserStats{
		ID:               r.ID,
		UserID:           r.UserID,
		Level:            level,
		ExperiencePoints: r.ExperiencePoints,
		TotalWorkouts:    int(r.TotalWorkouts),
		CurrentStreak:    int(r.CurrentStreak),
		LongestStreak:    int(r.LongestStreak),
		LastWorkoutDate:  fromMillisPtr(r.LastWorkoutDate),
		TotalWorkoutTime: r.TotalWorkoutTime,
		WorkoutTypes:     typeStatsFromPayload(types),
		Exercises:        exerciseStatsFromPayload(exercises),
		UpdatedAt:        fromMillis(r.UpdatedAt),
	}, nil
}

func StatsToDocument(s *models.UserStats) remote.Document {
	types := map[string]any{}
	for k, v := range typeStatsToPayload(s.WorkoutTypes) {
		types[k] = map[string]any{"count": v.Count, "totalDuration": v.TotalDuration}
	}
	exercises := map[string]any{}
	for k, v := range exerciseStatsToPayload(s.Exercises) {
		history := make([]any, 0, len(v.WeightHistory))
		for _, w := range v.WeightHistory {
			history = append(history, map[string]any{"date": w.Date, "weight": w.Weight})
		}
		exercises[k] = map[string]any{
			"bestWeight":    v.BestWeight,
			"averageReps":   v.AverageReps,
			"averageSets":   v.AverageSets,
			"sessions":      v.Sessions,
			"weightHistory": history,
		}
	}
	return remote.Document{
		"id":               s.ID,
		"userId":           s.UserID,
		"level":            s.Level,
		"experiencePoints": s.ExperiencePoints,
		"totalWorkouts":    s.TotalWorkouts,
		"currentStreak":    s.CurrentStreak,
		"longestStreak":    s.LongestStreak,
		"lastWorkoutDate":  docMillis(millisPtr(s.LastWorkoutDate)),
		"totalWorkoutTime": s.TotalWorkoutTime,
		"workoutTypes":     types,
		"exercises":        exercises,
		"updatedAt":        millis(s.UpdatedAt),
	}
}

func StatsFromDocument(d remote.Document) (*models.UserStats, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	typesDoc := d.Map("workoutTypes")
	types := make(map[string]typeStatsPayload, len(typesDoc))
	for _, k := range sortedKeys(typesDoc) {
		v := typesDoc.Map(k)
		types[k] = typeStatsPayload{Count: int(v.Int64("count")), TotalDuration: v.Int64("totalDuration")}
	}
	exDoc := d.Map("exercises")
	exercises := make(map[string]exerciseStatsPayload, len(exDoc))
	for _, k := range sortedKeys(exDoc) {
		v := exDoc.Map(k)
		items := v.List("weightHistory")
		history := make([]weightPayload, 0, len(items))
		for _, w := range items {
			history = append(history, weightPayload{Date: w.Int64("date"), Weight: w.Float("weight")})
		}
		exercises[k] = exerciseStatsPayload{
			BestWeight:    v.Float("bestWeight"),
			AverageReps:   v.Float("averageReps"),
			AverageSets:   v.Float("averageSets"),
			Sessions:      int(v.Int64("sessions")),
			WeightHistory: history,
		}
	}
	level := int(d.Int64("level"))
	if level < 1 {
		level = 1
	}
	return &models.UserStats{
		ID:               id,
		UserID:           d.String("userId"),
		Level:            level,
		ExperiencePoints: d.Int64("experiencePoints"),
		TotalWorkouts:    int(d.Int64("totalWorkouts")),
		CurrentStreak:    int(d.Int64("currentStreak")),
		LongestStreak:    int(d.Int64("longestStreak")),
		LastWorkoutDate:  fromMillisPtr(d.Int64("lastWorkoutDate")),
		TotalWorkoutTime: d.Int64("totalWorkoutTime"),
		WorkoutTypes:     typeStatsFromPayload(types),
		Exercises:        exerciseStatsFromPayload(exercises),
		UpdatedAt:        fromMillis(d.Int64("updatedAt")),
	}, nil
}

func sortedKeys(d remote.Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
