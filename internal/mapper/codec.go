// ABOUTME: Per-family codecs bundling entity accessors with row and document conversions.
// ABOUTME: Repositories and the sync coordinator share these instead of per-family code.
package mapper

import (
	"fmt"
	"time"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

// Codec describes one entity family.
type Codec[E any, R any, P storage.RowPtr[R]] struct {
	Collection string
	// Global families have no owning user.
	Global bool

	ID    func(*E) string
	SetID func(*E, string)
	Owner func(*E) string
	// Touch stamps a local modification time, filling creation time if unset.
	Touch func(*E, time.Time)

	ToRow        func(*E) (P, error)
	FromRow      func(P) (*E, error)
	ToDocument   func(*E) remote.Document
	FromDocument func(remote.Document) (*E, error)

	// Merge combines a pulled row with the existing local one. It reports
	// true when the result keeps local state the remote copy lacks. Nil
	// means the pulled row replaces the local one.
	Merge func(local, pulled P) (P, bool)
}

// RowToDocument converts a local row straight to its remote document.
func (c Codec[E, R, P]) RowToDocument(r P) (remote.Document, error) {
	e, err := c.FromRow(r)
	if err != nil {
		return nil, err
	}
	return c.ToDocument(e), nil
}

// DocumentToRow converts a remote document straight to a local row.
func (c Codec[E, R, P]) DocumentToRow(d remote.Document) (P, error) {
	e, err := c.FromDocument(d)
	if err != nil {
		return nil, err
	}
	row, err := c.ToRow(e)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Collection, c.ID(e), err)
	}
	return row, nil
}

func infallible[E any, P any](f func(*E) P) func(*E) (P, error) {
	return func(e *E) (P, error) { return f(e), nil }
}

var Users = Codec[models.User, storage.UserRow, *storage.UserRow]{
	Collection: remote.CollectionUsers,
	ID:         func(u *models.User) string { return u.ID },
	SetID:      func(u *models.User, id string) { u.ID = id },
	Owner:      func(u *models.User) string { return u.ID },
	Touch: func(u *models.User, now time.Time) {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
	},
	ToRow:        infallible(UserToRow),
	FromRow:      UserFromRow,
	ToDocument:   UserToDocument,
	FromDocument: UserFromDocument,
}

var Auth = Codec[models.UserAuth, storage.UserAuthRow, *storage.UserAuthRow]{
	Collection: remote.CollectionAuth,
	ID:         func(a *models.UserAuth) string { return a.ID },
	SetID:      func(a *models.UserAuth, id string) { a.ID = id },
	Owner:      func(a *models.UserAuth) string { return a.UserID },
	Touch: func(a *models.UserAuth, now time.Time) {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
	},
	ToRow:        infallible(AuthToRow),
	FromRow:      AuthFromRow,
	ToDocument:   AuthToDocument,
	FromDocument: AuthFromDocument,
}

var Profiles = Codec[models.UserProfile, storage.ProfileRow, *storage.ProfileRow]{
	Collection:   remote.CollectionProfiles,
	ID:           func(p *models.UserProfile) string { return p.ID },
	SetID:        func(p *models.UserProfile, id string) { p.ID = id },
	Owner:        func(p *models.UserProfile) string { return p.UserID },
	Touch:        func(p *models.UserProfile, now time.Time) { p.UpdatedAt = now },
	ToRow:        infallible(ProfileToRow),
	FromRow:      ProfileFromRow,
	ToDocument:   ProfileToDocument,
	FromDocument: ProfileFromDocument,
}

var Stats = Codec[models.UserStats, storage.StatsRow, *storage.StatsRow]{
	Collection:   remote.CollectionStats,
	ID:           func(s *models.UserStats) string { return s.ID },
	SetID:        func(s *models.UserStats, id string) { s.ID = id },
	Owner:        func(s *models.UserStats) string { return s.UserID },
	Touch:        func(s *models.UserStats, now time.Time) { s.UpdatedAt = now },
	ToRow:        StatsToRow,
	FromRow:      StatsFromRow,
	ToDocument:   StatsToDocument,
	FromDocument: StatsFromDocument,
}

var Achievements = Codec[models.AchievementDefinition, storage.AchievementRow, *storage.AchievementRow]{
	Collection:   remote.CollectionAchievements,
	Global:       true,
	ID:           func(a *models.AchievementDefinition) string { return a.ID },
	SetID:        func(a *models.AchievementDefinition, id string) { a.ID = id },
	Owner:        func(*models.AchievementDefinition) string { return "" },
	Touch:        func(a *models.AchievementDefinition, now time.Time) { a.UpdatedAt = now },
	ToRow:        infallible(AchievementToRow),
	FromRow:      AchievementFromRow,
	ToDocument:   AchievementToDocument,
	FromDocument: AchievementFromDocument,
	Merge:        MergeAchievement,
}

var Progress = Codec[models.AchievementProgress, storage.ProgressRow, *storage.ProgressRow]{
	Collection:   remote.CollectionProgress,
	ID:           func(p *models.AchievementProgress) string { return p.ID },
	SetID:        func(p *models.AchievementProgress, id string) { p.ID = id },
	Owner:        func(p *models.AchievementProgress) string { return p.UserID },
	Touch:        func(p *models.AchievementProgress, now time.Time) { p.LastUpdated = now },
	ToRow:        infallible(ProgressToRow),
	FromRow:      ProgressFromRow,
	ToDocument:   ProgressToDocument,
	FromDocument: ProgressFromDocument,
	Merge:        MergeProgress,
}

var Templates = Codec[models.WorkoutTemplate, storage.TemplateRow, *storage.TemplateRow]{
	Collection: remote.CollectionTemplates,
	ID:         func(t *models.WorkoutTemplate) string { return t.ID },
	SetID:      func(t *models.WorkoutTemplate, id string) { t.ID = id },
	Owner:      func(t *models.WorkoutTemplate) string { return t.UserID },
	Touch: func(t *models.WorkoutTemplate, now time.Time) {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
	},
	ToRow:        TemplateToRow,
	FromRow:      TemplateFromRow,
	ToDocument:   TemplateToDocument,
	FromDocument: TemplateFromDocument,
}

var Workouts = Codec[models.CompletedWorkout, storage.WorkoutRow, *storage.WorkoutRow]{
	Collection:   remote.CollectionWorkouts,
	ID:           func(w *models.CompletedWorkout) string { return w.ID },
	SetID:        func(w *models.CompletedWorkout, id string) { w.ID = id },
	Owner:        func(w *models.CompletedWorkout) string { return w.UserID },
	Touch:        func(w *models.CompletedWorkout, now time.Time) { w.UpdatedAt = now },
	ToRow:        WorkoutToRow,
	FromRow:      WorkoutFromRow,
	ToDocument:   WorkoutToDocument,
	FromDocument: WorkoutFromDocument,
}

var Categories = Codec[models.WorkoutCategory, storage.CategoryRow, *storage.CategoryRow]{
	Collection: remote.CollectionCategories,
	ID:         func(c *models.WorkoutCategory) string { return c.ID },
	SetID:      func(c *models.WorkoutCategory, id string) { c.ID = id },
	Owner:      func(c *models.WorkoutCategory) string { return c.UserID },
	Touch: func(c *models.WorkoutCategory, now time.Time) {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
	},
	ToRow:        infallible(CategoryToRow),
	FromRow:      CategoryFromRow,
	ToDocument:   CategoryToDocument,
	FromDocument: CategoryFromDocument,
}
