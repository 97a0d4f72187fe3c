// ABOUTME: Generic table access shared by every entity table.
// ABOUTME: Local writes mark rows dirty; MarkSynced is guarded by row version.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// RowPtr constrains a table's pointer row type.
type RowPtr[R any] interface {
	*R
	Row
}

// Table is a typed view of one SQLite table.
type Table[R any, P RowPtr[R]] struct {
	store   *Store
	name    string
	userCol string
	columns []string
	fields  func(P) []any

	selectSQL string
	upsertSQL string
}

func newTable[R any, P RowPtr[R]](s *Store, name, userCol string, columns []string, fields func(P) []any) *Table[R, P] {
	t := &Table[R, P]{
		store:   s,
		name:    name,
		userCol: userCol,
		columns: columns,
		fields:  fields,
	}

	all := append(append([]string{}, columns...), "needs_sync", "last_sync_time", "version", "deleted")
	t.selectSQL = fmt.Sprintf("SELECT %s FROM %s", strings.Join(all, ", "), name)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)+2), ", ")
	var sets []string
	for _, c := range columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	sets = append(sets,
		"needs_sync = excluded.needs_sync",
		fmt.Sprintf("last_sync_time = CASE WHEN excluded.needs_sync = 1 THEN %s.last_sync_time ELSE excluded.last_sync_time END", name),
		fmt.Sprintf("version = %s.version + 1", name),
		"deleted = 0",
	)
	t.upsertSQL = fmt.Sprintf(`
		INSERT INTO %s (%s, needs_sync, last_sync_time, version, deleted)
		VALUES (%s, 1, 0)
		ON CONFLICT(id) DO UPDATE SET %s
		RETURNING version, last_sync_time`,
		name, strings.Join(columns, ", "), placeholders, strings.Join(sets, ",\n\t\t\t"))

	return t
}

// Name returns the table name.
func (t *Table[R, P]) Name() string {
	return t.name
}

// Get returns a live row by id.
func (t *Table[R, P]) Get(ctx context.Context, id string) (P, error) {
	return t.queryOne(ctx, t.selectSQL+" WHERE id = ? AND deleted = 0", id)
}

// Lookup returns a row by id including tombstones.
func (t *Table[R, P]) Lookup(ctx context.Context, id string) (P, error) {
	return t.queryOne(ctx, t.selectSQL+" WHERE id = ?", id)
}

// ListByUser returns the live rows owned by userID.
func (t *Table[R, P]) ListByUser(ctx context.Context, userID string) ([]P, error) {
	if t.userCol == "" {
		return nil, fmt.Errorf("%s has no owner column", t.name)
	}
	return t.query(ctx, t.selectSQL+" WHERE "+t.userCol+" = ? AND deleted = 0 ORDER BY id", userID)
}

// ListAll returns every live row.
func (t *Table[R, P]) ListAll(ctx context.Context) ([]P, error) {
	return t.query(ctx, t.selectSQL+" WHERE deleted = 0 ORDER BY id")
}

// ListDirty returns rows awaiting push, tombstones included.
func (t *Table[R, P]) ListDirty(ctx context.Context) ([]P, error) {
	return t.query(ctx, t.selectSQL+" WHERE needs_sync = 1 ORDER BY id")
}

// Count returns the number of live rows.
func (t *Table[R, P]) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+" WHERE deleted = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Put writes a row as a local change: dirty, version bumped.
func (t *Table[R, P]) Put(ctx context.Context, row P) error {
	return t.put(ctx, row, true, 0)
}

// PutClean writes a row confirmed by the remote store.
func (t *Table[R, P]) PutClean(ctx context.Context, row P, syncedAt int64) error {
	return t.put(ctx, row, false, syncedAt)
}

func (t *Table[R, P]) put(ctx context.Context, row P, dirty bool, syncedAt int64) error {
	args := values(t.fields(row))
	args = append(args, dirty, syncedAt)

	m := row.Meta()
	err := t.store.db.QueryRowContext(ctx, t.upsertSQL, args...).Scan(&m.Version, &m.LastSyncTime)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", t.name, row.RowID(), err)
	}
	m.NeedsSync = dirty
	m.Deleted = false
	t.store.notify.publish(t.name)
	return nil
}

// MarkSynced clears the dirty flag if the row is still at version.
// It reports false when a newer local write landed in the meantime.
func (t *Table[R, P]) MarkSynced(ctx context.Context, id string, version, syncedAt int64) (bool, error) {
	res, err := t.store.db.ExecContext(ctx,
		"UPDATE "+t.name+" SET needs_sync = 0, last_sync_time = ? WHERE id = ? AND version = ?",
		syncedAt, id, version)
	if err != nil {
		return false, fmt.Errorf("mark synced %s %s: %w", t.name, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark synced %s %s: %w", t.name, id, err)
	}
	return affected > 0, nil
}

// Tombstone marks a live row deleted and dirty so the delete gets pushed.
func (t *Table[R, P]) Tombstone(ctx context.Context, id string) error {
	res, err := t.store.db.ExecContext(ctx,
		"UPDATE "+t.name+" SET deleted = 1, needs_sync = 1, version = version + 1 WHERE id = ? AND deleted = 0", id)
	if err != nil {
		return fmt.Errorf("tombstone %s %s: %w", t.name, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tombstone %s %s: %w", t.name, id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	t.store.notify.publish(t.name)
	return nil
}

// Purge removes a tombstone whose delete reached the remote store.
func (t *Table[R, P]) Purge(ctx context.Context, id string, version int64) (bool, error) {
	res, err := t.store.db.ExecContext(ctx,
		"DELETE FROM "+t.name+" WHERE id = ? AND version = ? AND deleted = 1", id, version)
	if err != nil {
		return false, fmt.Errorf("purge %s %s: %w", t.name, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("purge %s %s: %w", t.name, id, err)
	}
	return affected > 0, nil
}

// Delete removes a row locally without propagating.
func (t *Table[R, P]) Delete(ctx context.Context, id string) error {
	if _, err := t.store.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, id, err)
	}
	t.store.notify.publish(t.name)
	return nil
}

// DeleteByUser removes every row owned by userID locally without propagating.
func (t *Table[R, P]) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if t.userCol == "" {
		return 0, fmt.Errorf("%s has no owner column", t.name)
	}
	res, err := t.store.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE "+t.userCol+" = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("delete %s for user %s: %w", t.name, userID, err)
	}
	affected, _ := res.RowsAffected()
	t.store.notify.publish(t.name)
	return affected, nil
}

func (t *Table[R, P]) queryOne(ctx context.Context, query string, args ...any) (P, error) {
	row, err := t.scan(t.store.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return row, nil
}

func (t *Table[R, P]) query(ctx context.Context, query string, args ...any) ([]P, error) {
	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []P
	for rows.Next() {
		row, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (t *Table[R, P]) scan(sc scanner) (P, error) {
	row := P(new(R))
	m := row.Meta()
	dest := append(t.fields(row), &m.NeedsSync, &m.LastSyncTime, &m.Version, &m.Deleted)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	return row, nil
}

// values dereferences field pointers into statement arguments.
func values(ptrs []any) []any {
	out := make([]any, len(ptrs))
	for i, p := range ptrs {
		switch v := p.(type) {
		case *string:
			out[i] = *v
		case *int64:
			out[i] = *v
		case *float64:
			out[i] = *v
		case *bool:
			out[i] = *v
		default:
			out[i] = reflect.ValueOf(p).Elem().Interface()
		}
	}
	return out
}
