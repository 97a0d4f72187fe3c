// ABOUTME: Workout category and template repositories.
// ABOUTME: Default categories are seeded per user and cannot be deleted.
package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/storage"
)

// CategoryRepository serves per-user workout categories.
type CategoryRepository struct {
	*Entity[models.WorkoutCategory, storage.CategoryRow, *storage.CategoryRow]
}

// NewCategoryRepository binds the categories table.
func NewCategoryRepository(deps Deps) *CategoryRepository {
	deps = deps.withDefaults()
	return &CategoryRepository{newEntity(deps, deps.Store.Categories, mapper.Categories)}
}

// EnsureDefaults seeds the default categories the user is missing, matched
// by name, and returns every category of the user sorted by name.
func (r *CategoryRepository) EnsureDefaults(ctx context.Context, userID string) ([]*models.WorkoutCategory, error) {
	existing, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Name] = true
	}
	for _, d := range models.DefaultCategories {
		if have[d.Name] {
			continue
		}
		c := models.NewWorkoutCategory(userID, d.Name, d.Color)
		c.IsDefault = true
		created, err := r.Create(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("seed category %s: %w", d.Name, err)
		}
		existing = append(existing, created)
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Name < existing[j].Name })
	return existing, nil
}

// Delete removes a user-created category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDefault {
		return fmt.Errorf("%w: default category %q cannot be deleted", ErrInvalid, c.Name)
	}
	return r.Entity.Delete(ctx, id)
}

// TemplateRepository serves per-user workout templates.
type TemplateRepository struct {
	*Entity[models.WorkoutTemplate, storage.TemplateRow, *storage.TemplateRow]
}

// NewTemplateRepository binds the templates table.
func NewTemplateRepository(deps Deps) *TemplateRepository {
	deps = deps.withDefaults()
	return &TemplateRepository{newEntity(deps, deps.Store.Templates, mapper.Templates)}
}

// ListByCategory returns the user's templates in a category. An empty
// categoryID selects uncategorized templates.
func (r *TemplateRepository) ListByCategory(ctx context.Context, userID, categoryID string) ([]*models.WorkoutTemplate, error) {
	all, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out, nil
}
