// ABOUTME: Local row types, one per table, with their column bindings.
// ABOUTME: Timestamps are epoch millis; nested collections are JSON text.
package storage

// SyncMeta is the sync bookkeeping carried by every local row.
type SyncMeta struct {
	NeedsSync    bool
	LastSyncTime int64
	Version      int64
	Deleted      bool
}

// Meta returns the row's sync metadata.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Row is implemented by pointers to every row type.
type Row interface {
	RowID() string
	RowUser() string
	RowUpdatedAt() int64
	Meta() *SyncMeta
}

type UserRow struct {
	ID        string
	AuthID    string
	ProfileID string
	StatsID   string
	CreatedAt int64
	UpdatedAt int64
	SyncMeta
}

func (r *UserRow) RowID() string       { return r.ID }
func (r *UserRow) RowUser() string     { return r.ID }
func (r *UserRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type UserAuthRow struct {
	ID          string
	UserID      string
	Email       string
	Provider    string
	CreatedAt   int64
	LastLoginAt int64
	Language    string
	UpdatedAt   int64
	SyncMeta
}

func (r *UserAuthRow) RowID() string       { return r.ID }
func (r *UserAuthRow) RowUser() string     { return r.UserID }
func (r *UserAuthRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type ProfileRow struct {
	ID               string
	UserID           string
	DisplayName      string
	PhotoURL         string
	FavoriteBodyPart string
	UpdatedAt        int64
	SyncMeta
}

func (r *ProfileRow) RowID() string       { return r.ID }
func (r *ProfileRow) RowUser() string     { return r.UserID }
func (r *ProfileRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type StatsRow struct {
	ID               string
	UserID           string
	Level            int64
	ExperiencePoints int64
	TotalWorkouts    int64
	CurrentStreak    int64
	LongestStreak    int64
	LastWorkoutDate  int64
	TotalWorkoutTime int64
	WorkoutTypes     string
	Exercises        string
	UpdatedAt        int64
	SyncMeta
}

func (r *StatsRow) RowID() string       { return r.ID }
func (r *StatsRow) RowUser() string     { return r.UserID }
func (r *StatsRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type AchievementRow struct {
	ID          string
	Title       string
	Description string
	Type        string
	Target      float64
	XPReward    int64
	Icon        string
	IsActive    bool
	ExerciseID  string
	CategoryID  string
	UpdatedAt   int64
	SyncMeta
}

func (r *AchievementRow) RowID() string       { return r.ID }
func (r *AchievementRow) RowUser() string     { return "" }
func (r *AchievementRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type ProgressRow struct {
	ID            string
	UserID        string
	AchievementID string
	CurrentValue  float64
	IsCompleted   bool
	CompletedAt   int64
	LastUpdated   int64
	SyncMeta
}

func (r *ProgressRow) RowID() string       { return r.ID }
func (r *ProgressRow) RowUser() string     { return r.UserID }
func (r *ProgressRow) RowUpdatedAt() int64 { return r.LastUpdated }

type TemplateRow struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CategoryID  string
	Exercises   string
	CreatedAt   int64
	UpdatedAt   int64
	SyncMeta
}

func (r *TemplateRow) RowID() string       { return r.ID }
func (r *TemplateRow) RowUser() string     { return r.UserID }
func (r *TemplateRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type WorkoutRow struct {
	ID         string
	UserID     string
	Name       string
	TemplateID string
	CategoryID string
	StartTime  int64
	EndTime    int64 // 0 while in progress
	Duration   int64
	Exercises  string
	UpdatedAt  int64
	SyncMeta
}

func (r *WorkoutRow) RowID() string       { return r.ID }
func (r *WorkoutRow) RowUser() string     { return r.UserID }
func (r *WorkoutRow) RowUpdatedAt() int64 { return r.UpdatedAt }

type CategoryRow struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	IsDefault bool
	CreatedAt int64
	UpdatedAt int64
	SyncMeta
}

func (r *CategoryRow) RowID() string       { return r.ID }
func (r *CategoryRow) RowUser() string     { return r.UserID }
func (r *CategoryRow) RowUpdatedAt() int64 { return r.UpdatedAt }

// bindTables wires each table to its columns. Field order matches columns.
func (s *Store) bindTables() {
	s.Users = newTable(s, TableUsers, "id",
		[]string{"id", "auth_id", "profile_id", "stats_id", "created_at", "updated_at"},
		func(r *UserRow) []any {
			return []any{&r.ID, &r.AuthID, &r.ProfileID, &r.StatsID, &r.CreatedAt, &r.UpdatedAt}
		})
	s.Auth = newTable(s, TableAuth, "user_id",
		[]string{"id", "user_id", "email", "provider", "created_at", "last_login_at", "language", "updated_at"},
		func(r *UserAuthRow) []any {
			return []any{&r.ID, &r.UserID, &r.Email, &r.Provider, &r.CreatedAt, &r.LastLoginAt, &r.Language, &r.UpdatedAt}
		})
	s.Profiles = newTable(s, TableProfiles, "user_id",
		[]string{"id", "user_id", "display_name", "photo_url", "favorite_body_part", "updated_at"},
		func(r *ProfileRow) []any {
			return []any{&r.ID, &r.UserID, &r.DisplayName, &r.PhotoURL, &r.FavoriteBodyPart, &r.UpdatedAt}
		})
	s.Stats = newTable(s, TableStats, "user_id",
		[]string{"id", "user_id", "level", "experience_points", "total_workouts", "current_streak",
			"longest_streak", "last_workout_date", "total_workout_time", "workout_types", "exercises", "updated_at"},
		func(r *StatsRow) []any {
			return []any{&r.ID, &r.UserID, &r.Level, &r.ExperiencePoints, &r.TotalWorkouts, &r.CurrentStreak,
				&r.LongestStreak, &r.LastWorkoutDate, &r.TotalWorkoutTime, &r.WorkoutTypes, &r.Exercises, &r.UpdatedAt}
		})
	s.Achievements = newTable(s, TableAchievements, "",
		[]string{"id", "title", "description", "type", "target", "xp_reward", "icon", "is_active",
			"exercise_id", "category_id", "updated_at"},
		func(r *AchievementRow) []any {
			return []any{&r.ID, &r.Title, &r.Description, &r.Type, &r.Target, &r.XPReward, &r.Icon, &r.IsActive,
				&r.ExerciseID, &r.CategoryID, &r.UpdatedAt}
		})
	s.Progress = newTable(s, TableProgress, "user_id",
		[]string{"id", "user_id", "achievement_id", "current_value", "is_completed", "completed_at", "last_updated"},
		func(r *ProgressRow) []any {
			return []any{&r.ID, &r.UserID, &r.AchievementID, &r.CurrentValue, &r.IsCompleted, &r.CompletedAt, &r.LastUpdated}
		})
	s.Templates = newTable(s, TableTemplates, "user_id",
		[]string{"id", "user_id", "name", "description", "category_id", "exercises", "created_at", "updated_at"},
		func(r *TemplateRow) []any {
			return []any{&r.ID, &r.UserID, &r.Name, &r.Description, &r.CategoryID, &r.Exercises, &r.CreatedAt, &r.UpdatedAt}
		})
	s.Workouts = newTable(s, TableWorkouts, "user_id",
		[]string{"id", "user_id", "name", "template_id", "category_id", "start_time", "end_time", "duration",
			"exercises", "updated_at"},
		func(r *WorkoutRow) []any {
			return []any{&r.ID, &r.UserID, &r.Name, &r.TemplateID, &r.CategoryID, &r.StartTime, &r.EndTime, &r.Duration,
				&r.Exercises, &r.UpdatedAt}
		})
	s.Categories = newTable(s, TableCategories, "user_id",
		[]string{"id", "user_id", "name", "color", "is_default", "created_at", "updated_at"},
		func(r *CategoryRow) []any {
			return []any{&r.ID, &r.UserID, &r.Name, &r.Color, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt}
		})
}
