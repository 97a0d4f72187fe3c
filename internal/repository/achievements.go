// ABOUTME: Achievement definitions (global) and per-user progress repository.
// ABOUTME: Definitions only change through SetActive; progress completion never reverts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/storage"
)

// AchievementRepository serves the global definitions and per-user progress.
type AchievementRepository struct {
	defs     *Entity[models.AchievementDefinition, storage.AchievementRow, *storage.AchievementRow]
	progress *Entity[models.AchievementProgress, storage.ProgressRow, *storage.ProgressRow]
	deps     Deps
}

// NewAchievementRepository binds the definition and progress tables.
func NewAchievementRepository(deps Deps) *AchievementRepository {
	deps = deps.withDefaults()
	return &AchievementRepository{
		defs:     newEntity(deps, deps.Store.Achievements, mapper.Achievements),
		progress: newEntity(deps, deps.Store.Progress, mapper.Progress),
		deps:     deps,
	}
}

// SeedDefinitions stores bundled definitions that are not yet known locally.
// Seeded rows are clean: the catalog is not pushed from devices.
func (r *AchievementRepository) SeedDefinitions(ctx context.Context, defs []models.AchievementDefinition) (int, error) {
	seeded := 0
	for i := range defs {
		d := defs[i]
		_, err := r.deps.Store.Achievements.Lookup(ctx, d.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return seeded, err
		}
		if err := r.deps.Store.Achievements.PutClean(ctx, mapper.AchievementToRow(&d), 0); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

// Definition returns one definition.
func (r *AchievementRepository) Definition(ctx context.Context, id string) (*models.AchievementDefinition, error) {
	return r.defs.Get(ctx, id)
}

// Definitions returns every definition sorted by id.
func (r *AchievementRepository) Definitions(ctx context.Context) ([]*models.AchievementDefinition, error) {
	all, err := r.defs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// ListActive returns the active definitions sorted by id.
func (r *AchievementRepository) ListActive(ctx context.Context) ([]*models.AchievementDefinition, error) {
	all, err := r.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, d := range all {
		if d.IsActive {
			active = append(active, d)
		}
	}
	return active, nil
}

// SetActive toggles a definition's active flag.
func (r *AchievementRepository) SetActive(ctx context.Context, id string, active bool) (*models.AchievementDefinition, error) {
	d, err := r.defs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsActive == active {
		return d, nil
	}
	d.IsActive = active
	return r.defs.Update(ctx, d)
}

// Progress returns the user's progress on a definition.
func (r *AchievementRepository) Progress(ctx context.Context, userID, achievementID string) (*models.AchievementProgress, error) {
	return r.progress.Get(ctx, models.ProgressID(userID, achievementID))
}

// ProgressOrNew returns stored progress or fresh zero progress.
func (r *AchievementRepository) ProgressOrNew(ctx context.Context, userID, achievementID string) (*models.AchievementProgress, error) {
	p, err := r.Progress(ctx, userID, achievementID)
	if errors.Is(err, ErrNotFound) {
		return models.NewAchievementProgress(userID, achievementID), nil
	}
	return p, err
}

// ListProgress returns every progress record of the user.
func (r *AchievementRepository) ListProgress(ctx context.Context, userID string) ([]*models.AchievementProgress, error) {
	return r.progress.ListForUser(ctx, userID)
}

// WatchProgress streams the user's progress records.
func (r *AchievementRepository) WatchProgress(ctx context.Context, userID string) <-chan []*models.AchievementProgress {
	return r.progress.Watch(ctx, userID)
}

// SaveProgress upserts progress. A stored completion is carried over if the
// incoming record lost it.
func (r *AchievementRepository) SaveProgress(ctx context.Context, p *models.AchievementProgress) (*models.AchievementProgress, error) {
	if p.ID == "" {
		p.ID = models.ProgressID(p.UserID, p.AchievementID)
	}
	stored, err := r.Progress(ctx, p.UserID, p.AchievementID)
	switch {
	case err == nil:
		if stored.IsCompleted && !p.IsCompleted {
			p.IsCompleted = true
			p.CompletedAt = stored.CompletedAt
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return r.progress.Save(ctx, p)
}

// Award completes an achievement explicitly. It reports false when the user
// already had it.
func (r *AchievementRepository) Award(ctx context.Context, userID, achievementID string) (*models.AchievementDefinition, bool, error) {
	def, err := r.defs.Get(ctx, achievementID)
	if err != nil {
		return nil, false, err
	}
	if !def.IsActive {
		return def, false, fmt.Errorf("%w: achievement %s is inactive", ErrInvalid, achievementID)
	}
	p, err := r.ProgressOrNew(ctx, userID, achievementID)
	if err != nil {
		return nil, false, err
	}
	if p.IsCompleted {
		return def, false, nil
	}
	p.Apply(def.Target, true, r.deps.Now())
	if _, err := r.SaveProgress(ctx, p); err != nil {
		return nil, false, err
	}
	return def, true, nil
}

// ClearLocal removes the user's cached progress without touching the remote
// store or any definition.
func (r *AchievementRepository) ClearLocal(ctx context.Context, userID string) (int64, error) {
	return r.deps.Store.Progress.DeleteByUser(ctx, userID)
}
