// ABOUTME: Conversions for categories, templates and completed workouts.
// ABOUTME: Exercises and sets are embedded, never separate rows or documents.
package mapper

import (
	"fmt"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

// CategoryToRow converts a category to its local row.
func CategoryToRow(c *models.WorkoutCategory) *storage.CategoryRow {
	return &storage.CategoryRow{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Color:     c.Color,
		IsDefault: c.IsDefault,
		CreatedAt: millis(c.CreatedAt),
		UpdatedAt: millis(c.UpdatedAt),
	}
}

// CategoryFromRow converts a local row to a category.
func CategoryFromRow(r *storage.CategoryRow) (*models.WorkoutCategory, error) {
	return &models.WorkoutCategory{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Color:     r.Color,
		IsDefault: r.IsDefault,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}, nil
}

// CategoryToDocument converts a category to its remote document.
func CategoryToDocument(c *models.WorkoutCategory) remote.Document {
	return remote.Document{
		"id":        c.ID,
		"userId":    c.UserID,
		"name":      c.Name,
		"color":     c.Color,
		"isDefault": c.IsDefault,
		"createdAt": millis(c.CreatedAt),
		"updatedAt": millis(c.UpdatedAt),
	}
}

// CategoryFromDocument converts a remote document to a category.
// A missing updatedAt falls back to createdAt.
func CategoryFromDocument(d remote.Document) (*models.WorkoutCategory, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	created := d.Int64("createdAt")
	updated := d.Int64("updatedAt")
	if updated == 0 {
		updated = created
	}
	return &models.WorkoutCategory{
		ID:        id,
		UserID:    d.String("userId"),
		Name:      d.String("name"),
		Color:     d.String("color"),
		IsDefault: d.Bool("isDefault"),
		CreatedAt: fromMillis(created),
		UpdatedAt: fromMillis(updated),
	}, nil
}

func templateExercisesToPayload(exercises []models.TemplateExercise) []exercisePayload {
	out := make([]exercisePayload, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, exercisePayload{ExerciseID: e.ExerciseID, Name: e.Name, Sets: setsToPayload(e.Sets)})
	}
	return out
}

func templateExercisesFromPayload(exercises []exercisePayload) []models.TemplateExercise {
	out := make([]models.TemplateExercise, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, models.TemplateExercise{ExerciseID: e.ExerciseID, Name: e.Name, Sets: setsFromPayload(e.Sets)})
	}
	return out
}

// TemplateToRow converts a template to its local row.
func TemplateToRow(t *models.WorkoutTemplate) (*storage.TemplateRow, error) {
	exercises, err := encodeJSON(templateExercisesToPayload(t.Exercises))
	if err != nil {
		return nil, fmt.Errorf("template %s exercises: %w", t.ID, err)
	}
	return &storage.TemplateRow{
		ID:          t.ID,
		UserID:      t.UserID,
		Name:        t.Name,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Exercises:   exercises,
		CreatedAt:   millis(t.CreatedAt),
		UpdatedAt:   millis(t.UpdatedAt),
	}, nil
}

// TemplateFromRow converts a local row to a template.
func TemplateFromRow(r *storage.TemplateRow) (*models.WorkoutTemplate, error) {
	var exercises []exercisePayload
	if err := decodeJSON(r.Exercises, &exercises); err != nil {
		return nil, fmt.Errorf("template %s exercises: %w", r.ID, err)
	}
	return &models.WorkoutTemplate{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Exercises:   templateExercisesFromPayload(exercises),
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}, nil
}

// TemplateToDocument converts a template to its remote document.
func TemplateToDocument(t *models.WorkoutTemplate) remote.Document {
	return remote.Document{
		"id":          t.ID,
		"userId":      t.UserID,
		"name":        t.Name,
		"description": t.Description,
		"categoryId":  t.CategoryID,
		"exercises":   exercisesToDoc(templateExercisesToPayload(t.Exercises)),
		"createdAt":   millis(t.CreatedAt),
		"updatedAt":   millis(t.UpdatedAt),
	}
}

// TemplateFromDocument converts a remote document to a template.
func TemplateFromDocument(d remote.Document) (*models.WorkoutTemplate, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	return &models.WorkoutTemplate{
		ID:          id,
		UserID:      d.String("userId"),
		Name:        d.String("name"),
		Description: d.String("description"),
		CategoryID:  d.String("categoryId"),
		Exercises:   templateExercisesFromPayload(exercisesFromDoc(d.List("exercises"))),
		CreatedAt:   fromMillis(d.Int64("createdAt")),
		UpdatedAt:   fromMillis(d.Int64("updatedAt")),
	}, nil
}

func completedExercisesToPayload(exercises []models.CompletedExercise) []exercisePayload {
	out := make([]exercisePayload, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, exercisePayload{ExerciseID: e.ExerciseID, Name: e.Name, Sets: setsToPayload(e.Sets)})
	}
	return out
}

func completedExercisesFromPayload(exercises []exercisePayload) []models.CompletedExercise {
	out := make([]models.CompletedExercise, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, models.CompletedExercise{ExerciseID: e.ExerciseID, Name: e.Name, Sets: setsFromPayload(e.Sets)})
	}
	return out
}

// WorkoutToRow converts a workout to its local row. In-progress sessions
// store end_time 0.
func WorkoutToRow(w *models.CompletedWorkout) (*storage.WorkoutRow, error) {
	exercises, err := encodeJSON(completedExercisesToPayload(w.Exercises))
	if err != nil {
		return nil, fmt.Errorf("workout %s exercises: %w", w.ID, err)
	}
	return &storage.WorkoutRow{
		ID:         w.ID,
		UserID:     w.UserID,
		Name:       w.Name,
		TemplateID: w.TemplateID,
		CategoryID: w.CategoryID,
		StartTime:  millis(w.StartTime),
		EndTime:    millisPtr(w.EndTime),
		Duration:   w.Duration,
		Exercises:  exercises,
		UpdatedAt:  millis(w.UpdatedAt),
	}, nil
}

// WorkoutFromRow converts a local row to a workout.
func WorkoutFromRow(r *storage.WorkoutRow) (*models.CompletedWorkout, error) {
	var exercises []exercisePayload
	if err := decodeJSON(r.Exercises, &exercises); err != nil {
		return nil, fmt.Errorf("workout %s exercises: %w", r.ID, err)
	}
	return &models.CompletedWorkout{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		TemplateID: r.TemplateID,
		CategoryID: r.CategoryID,
		StartTime:  fromMillis(r.StartTime),
		EndTime:    fromMillisPtr(r.EndTime),
		Duration:   r.Duration,
		Exercises:  completedExercisesFromPayload(exercises),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}, nil
}

// WorkoutToDocument converts a workout to its remote document.
func WorkoutToDocument(w *models.CompletedWorkout) remote.Document {
	return remote.Document{
		"id":         w.ID,
		"userId":     w.UserID,
		"name":       w.Name,
		"templateId": w.TemplateID,
		"categoryId": w.CategoryID,
		"startTime":  millis(w.StartTime),
		"endTime":    docMillis(millisPtr(w.EndTime)),
		"duration":   w.Duration,
		"exercises":  exercisesToDoc(completedExercisesToPayload(w.Exercises)),
		"updatedAt":  millis(w.UpdatedAt),
	}
}

// WorkoutFromDocument converts a remote document to a workout.
func WorkoutFromDocument(d remote.Document) (*models.CompletedWorkout, error) {
	id, err := docID(d)
	if err != nil {
		return nil, err
	}
	return &models.CompletedWorkout{
		ID:         id,
		UserID:     d.String("userId"),
		Name:       d.String("name"),
		TemplateID: d.String("templateId"),
		CategoryID: d.String("categoryId"),
		StartTime:  fromMillis(d.Int64("startTime")),
		EndTime:    fromMillisPtr(d.Int64("endTime")),
		Duration:   d.Int64("duration"),
		Exercises:  completedExercisesFromPayload(exercisesFromDoc(d.List("exercises"))),
		UpdatedAt:  fromMillis(d.Int64("updatedAt")),
	}, nil
}
