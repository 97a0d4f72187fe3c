// ABOUTME: SQLite local store connection and lifecycle management.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist (or is tombstoned).
var ErrNotFound = errors.New("not found")

// Store is the on-device source of truth. One table per entity.
type Store struct {
	db     *sql.DB
	dbPath string
	notify *notifier

	Users        *Table[UserRow, *UserRow]
	Auth         *Table[UserAuthRow, *UserAuthRow]
	Profiles     *Table[ProfileRow, *ProfileRow]
	Stats        *Table[StatsRow, *StatsRow]
	Achievements *Table[AchievementRow, *AchievementRow]
	Progress     *Table[ProgressRow, *ProgressRow]
	Templates    *Table[TemplateRow, *TemplateRow]
	Workouts     *Table[WorkoutRow, *WorkoutRow]
	Categories   *Table[CategoryRow, *CategoryRow]
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath, notify: newNotifier()}

	if err := s.configurePragmas(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	s.bindTables()
	return s, nil
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "fitsync")
}

// DefaultDBPath returns the default database path following XDG spec.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "fitsync.db")
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Subscribe returns a channel signalled after each committed write to table.
// Signals coalesce; call cancel to release the subscription.
func (s *Store) Subscribe(table string) (<-chan struct{}, func()) {
	return s.notify.subscribe(table)
}

// DirtyCount returns the number of rows awaiting push across all tables.
func (s *Store) DirtyCount(ctx context.Context) (int, error) {
	total := 0
	for _, name := range AllTables {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE needs_sync = 1", name)
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return 0, fmt.Errorf("count dirty %s: %w", name, err)
		}
		total += n
	}
	return total, nil
}

// configurePragmas sets up SQLite for local-first use.
func (s *Store) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}
