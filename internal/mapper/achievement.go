// ABOUTME: Conversions for achievement definitions and per-user progress.
// ABOUTME: Unknown achievement types decode as FIRST_TIME.
package mapper

import (
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

func AchievementToRow(a *models.AchievementDefinition) *storage.AchievementRow {
	return &storage.AchievementRow{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Type:        string(a.Type),
		Target:      a.Target,
		XPReward:    a.XPReward,
		Icon:        a.Icon,
		IsActive:    a.IsActive,
		ExerciseID:  a.ExerciseID,
		CategoryID:  a.CategoryID,
		UpdatedAt:   millis(a.UpdatedAt),
	}
}

func AchievementFromRow(r *storage.AchievementRow) (*models.AchievementDefinition, error) {
	return &models.AchievementDefinition{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        models.ParseAchievementType(r.Type),
		Target:      r.Target,
		XPReward:    r.XPReward,
		Icon:        r.Icon,
		IsActive:    r.IsActive,
		ExerciseID:  r.ExerciseID,
		CategoryID:  r.CategoryID,
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}, nil
}

func AchievementToDocument(a *models.AchievementDefinition) remote.Document {
	return remote.Document{
		"id":          a.ID,
		"title":       a.Title,
		"description": a.Description,
		"type":        string(a.Type),
		"target":      a.Target,
		"xpReward":    a.XPReward,
		"icon":        a.Icon,
		"isActive":    a.IsActive,
		"exerciseId":  a.ExerciseID,
		"categoryId":  a.CategoryID,
		"updatedAt":   millis(a.UpdatedAt),
	}
}

// AchievementFromDocument decodes a definition. A missing isActive means
// active.
func AchievementFromDocument(d remote.Document) (*models.AchievementDefinition, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	active := true
	if d.Has("isActive") {
		active = d.Bool("isActive")
	}
	return &models.AchievementDefinition{
		ID:          id,
		Title:       d.String("title"),
		Description: d.String("description"),
		Type:        models.ParseAchievementType(d.String("type")),
		Target:      d.Float("target"),
		XPReward:    d.Int64("xpReward"),
		Icon:        d.String("icon"),
		IsActive:    active,
		ExerciseID:  d.String("exerciseId"),
		CategoryID:  d.String("categoryId"),
		UpdatedAt:   fromMillis(d.Int64("updatedAt")),
	}, nil
}

func ProgressToRow(p *models.AchievementProgress) *storage.ProgressRow {
	return &storage.ProgressRow{
		ID:            p.ID,
		UserID:        p.UserID,
		AchievementID: p.AchievementID,
		CurrentValue:  p.CurrentValue,
		IsCompleted:   p.IsCompleted,
		CompletedAt:   millisPtr(p.CompletedAt),
		LastUpdated:   millis(p.LastUpdated),
	}
}

func ProgressFromRow(r *storage.ProgressRow) (*models.AchievementProgress, error) {
	return &models.AchievementProgress{
		ID:            r.ID,
		UserID:        r.UserID,
		AchievementID: r.AchievementID,
		CurrentValue:  r.CurrentValue,
		IsCompleted:   r.IsCompleted,
		CompletedAt:   fromMillisPtr(r.CompletedAt),
		LastUpdated:   fromMillis(r.LastUpdated),
	}, nil
}

func ProgressToDocument(p *models.AchievementProgress) remote.Document {
	return remote.Document{
		"id":            p.ID,
		"userId":        p.UserID,
		"achievementId": p.AchievementID,
		"currentValue":  p.CurrentValue,
		"isCompleted":   p.IsCompleted,
		"completedAt":   docMillis(millisPtr(p.CompletedAt)),
		"lastUpdated":   millis(p.LastUpdated),
		"updatedAt":     millis(p.LastUpdated),
	}
}

// ProgressFromDocument decodes progress; lastUpdated falls back to updatedAt.
func ProgressFromDocument(d remote.Document) (*models.AchievementProgress, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	last := d.Int64("lastUpdated")
	if last == 0 {
		last = d.Int64("updatedAt")
	}
	return &models.AchievementProgress{
		ID:            id,
		UserID:        d.String("userId"),
		AchievementID: d.String("achievementId"),
		CurrentValue:  d.Float("currentValue"),
		IsCompleted:   d.Bool("isCompleted"),
		CompletedAt:   fromMillisPtr(d.Int64("completedAt")),
		LastUpdated:   fromMillis(last),
	}, nil
}

// MergeAchievement applies a pulled definition to the local one. Only the
// active flag may change once a definition exists.
func MergeAchievement(local, pulled *storage.AchievementRow) (*storage.AchievementRow, bool) {
	merged := *local
	merged.IsActive = pulled.IsActive
	if pulled.UpdatedAt > merged.UpdatedAt {
		merged.UpdatedAt = pulled.UpdatedAt
	}
	return &merged, false
}

// MergeProgress applies pulled progress. A local completion and its
// completedAt survive a remote copy that lacks them.
func MergeProgress(local, pulled *storage.ProgressRow) (*storage.ProgressRow, bool) {
	if !local.IsCompleted {
		return pulled, false
	}
	merged := *pulled
	merged.IsCompleted = true
	if local.CompletedAt != 0 {
		merged.CompletedAt = local.CompletedAt
	}
	if merged.CurrentValue < local.CurrentValue {
		merged.CurrentValue = local.CurrentValue
	}
	return &merged, merged != *pulled
}
