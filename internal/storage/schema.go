// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Every table carries needs_sync, last_sync_time, version and deleted columns.
package storage

// Table names.
const (
	TableUsers        = "users"
	TableAuth         = "user_auth"
	TableProfiles     = "user_profiles"
	TableStats        = "user_stats"
	TableAchievements = "achievements"
	TableProgress     = "achievement_progress"
	TableTemplates    = "workout_templates"
	TableWorkouts     = "completed_workouts"
	TableCategories   = "workout_categories"
)

// AllTables lists every table in sync order.
var AllTables = []string{
	TableUsers, TableAuth, TableProfiles, TableStats,
	TableAchievements, TableProgress,
	TableTemplates, TableWorkouts, TableCategories,
}

const syncColumns = `
		needs_sync INTEGER NOT NULL DEFAULT 0,
		last_sync_time INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0`

// initSchema creates or updates the database schema.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		auth_id TEXT NOT NULL DEFAULT '',
		profile_id TEXT NOT NULL DEFAULT '',
		stats_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS user_auth (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT 0,
		last_login_at INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		favorite_body_part TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS user_stats (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1,
		experience_points INTEGER NOT NULL DEFAULT 0,
		total_workouts INTEGER NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_workout_date INTEGER NOT NULL DEFAULT 0,
		total_workout_time INTEGER NOT NULL DEFAULT 0,
		workout_types TEXT NOT NULL DEFAULT '{}',
		exercises TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		target REAL NOT NULL DEFAULT 0,
		xp_reward INTEGER NOT NULL DEFAULT 0,
		icon TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		exercise_id TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS achievement_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		achievement_id TEXT NOT NULL,
		current_value REAL NOT NULL DEFAULT 0,
		is_completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS workout_templates (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL DEFAULT '',
		exercises TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS completed_workouts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		template_id TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL DEFAULT '',
		start_time INTEGER NOT NULL DEFAULT 0,
		end_time INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		exercises TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE TABLE IF NOT EXISTS workout_categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,` + syncColumns + `
	);

	CREATE INDEX IF NOT EXISTS idx_auth_user ON user_auth(user_id);
	CREATE INDEX IF NOT EXISTS idx_profiles_user ON user_profiles(user_id);
	CREATE INDEX IF NOT EXISTS idx_stats_user ON user_stats(user_id);
	CREATE INDEX IF NOT EXISTS idx_progress_user ON achievement_progress(user_id);
	CREATE INDEX IF NOT EXISTS idx_templates_user ON workout_templates(user_id);
	CREATE INDEX IF NOT EXISTS idx_workouts_user_start ON completed_workouts(user_id, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_categories_user ON workout_categories(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
