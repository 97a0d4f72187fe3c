// ABOUTME: Push and pull of one entity family between the local and remote stores.
// ABOUTME: One generic implementation serves every table through its mapper codec.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

type family interface {
	Name() string
	global() bool
	// push sends every dirty row. Row failures are aggregated and leave the
	// row dirty; a local read failure aborts the family.
	push(ctx context.Context, c *Coordinator, rep *FamilyReport) error
	pushOne(ctx context.Context, c *Coordinator, id string) error
	// pull applies remote records. force overwrites local state outright.
	pull(ctx context.Context, c *Coordinator, userID string, force bool, rep *FamilyReport) error
}

type tableFamily[E any, R any, P storage.RowPtr[R]] struct {
	table *storage.Table[R, P]
	codec mapper.Codec[E, R, P]
}

func newFamily[E any, R any, P storage.RowPtr[R]](table *storage.Table[R, P], codec mapper.Codec[E, R, P]) family {
	return &tableFamily[E, R, P]{table: table, codec: codec}
}

func (f *tableFamily[E, R, P]) Name() string {
	return f.codec.Collection
}

func (f *tableFamily[E, R, P]) global() bool {
	return f.codec.Global
}

func (f *tableFamily[E, R, P]) push(ctx context.Context, c *Coordinator, rep *FamilyReport) error {
	rows, err := f.table.ListDirty(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		switch err := f.pushRow(ctx, c, row); {
		case err == nil:
			rep.Pushed++
		case errors.Is(err, errMalformed):
			rep.Skipped++
		default:
			rep.Failed++
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (f *tableFamily[E, R, P]) pushOne(ctx context.Context, c *Coordinator, id string) error {
	row, err := f.table.Lookup(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !row.Meta().NeedsSync {
		return nil
	}
	return f.pushRow(ctx, c, row)
}

var errMalformed = errors.New("malformed record")

func (f *tableFamily[E, R, P]) pushRow(ctx context.Context, c *Coordinator, row P) error {
	id := row.RowID()
	meta := row.Meta()
	log := c.log.WithFields(logrus.Fields{"family": f.Name(), "id": id})
	name := f.Name()

	if meta.Deleted {
		if err := c.remote.Delete(ctx, name, id); err != nil {
			log.WithError(err).Warn("remote delete failed; row stays dirty")
			c.metrics.CounterPushFailures.WithLabelValues(name).Inc()
			return fmt.Errorf("delete %s/%s: %w", name, id, err)
		}
		if _, err := f.table.Purge(ctx, id, meta.Version); err != nil {
			return err
		}
		c.metrics.CounterRowsPushed.WithLabelValues(name).Inc()
		log.Debug("pushed delete")
		return nil
	}

	doc, err := f.codec.RowToDocument(row)
	if err != nil {
		log.WithError(err).Warn("skipping malformed local row")
		c.metrics.CounterMalformedRecords.WithLabelValues(name).Inc()
		return fmt.Errorf("%w: %s/%s: %v", errMalformed, name, id, err)
	}
	if err := c.remote.Put(ctx, name, id, doc); err != nil {
		log.WithError(err).Warn("remote write failed; row stays dirty")
		c.metrics.CounterPushFailures.WithLabelValues(name).Inc()
		return fmt.Errorf("put %s/%s: %w", name, id, err)
	}
	synced, err := f.table.MarkSynced(ctx, id, meta.Version, c.now().UnixMilli())
	if err != nil {
		return err
	}
	if !synced {
		log.Debug("row changed during push; stays dirty")
	}
	c.metrics.CounterRowsPushed.WithLabelValues(name).Inc()
	log.Debug("pushed")
	return nil
}

func (f *tableFamily[E, R, P]) pull(ctx context.Context, c *Coordinator, userID string, force bool, rep *FamilyReport) error {
	name := f.Name()
	docs, err := f.listRemote(ctx, c, userID)
	if err != nil {
		return fmt.Errorf("list remote %s: %w", name, err)
	}

	syncedAt := c.now().UnixMilli()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := f.codec.DocumentToRow(doc)
		if err != nil {
			c.log.WithError(err).WithField("family", name).Warn("skipping malformed remote document")
			c.metrics.CounterMalformedRecords.WithLabelValues(name).Inc()
			rep.Skipped++
			continue
		}
		if !f.codec.Global && row.RowUser() != userID {
			rep.Skipped++
			continue
		}

		local, err := f.table.Lookup(ctx, row.RowID())
		switch {
		case errors.Is(err, storage.ErrNotFound):
			local = nil
		case err != nil:
			return err
		}
		if !force && !shouldApply(local, row) {
			continue
		}

		// A merge that keeps local state the remote lacks leaves the row
		// dirty so the next push repairs the remote copy.
		repush := false
		if local != nil && !local.Meta().Deleted && f.codec.Merge != nil {
			row, repush = f.codec.Merge(local, row)
		}
		if repush {
			err = f.table.Put(ctx, row)
		} else {
			err = f.table.PutClean(ctx, row, syncedAt)
		}
		if err != nil {
			return err
		}
		rep.Pulled++
		c.metrics.CounterRowsPulled.WithLabelValues(name).Inc()
	}
	return nil
}

func (f *tableFamily[E, R, P]) listRemote(ctx context.Context, c *Coordinator, userID string) ([]remote.Document, error) {
	if f.codec.Global {
		return c.remote.List(ctx, f.Name())
	}
	return c.remote.ListByUser(ctx, f.Name(), userID)
}

// shouldApply is the last-write-wins rule: insert when absent; overwrite a
// clean local row only when the remote copy is strictly newer. Tombstones
// are never resurrected.
func shouldApply[R any, P storage.RowPtr[R]](local, remoteRow P) bool {
	if local == nil {
		return true
	}
	m := local.Meta()
	if m.Deleted || m.NeedsSync {
		return false
	}
	return remoteRow.RowUpdatedAt() > local.RowUpdatedAt()
}
