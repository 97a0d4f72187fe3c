// ABOUTME: Generic local-first repository shared by every entity family.
// ABOUTME: Writes land in the local store dirty; reads fall back to remote when online.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/remote"
	"github.com/harperreed/fitsync/internal/storage"
)

var (
	// ErrNotFound is returned when an entity exists neither locally nor remotely.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for entities missing an id or owning user.
	ErrInvalid = errors.New("invalid entity")
	// ErrSessionActive is returned when a user already has an in-progress workout.
	ErrSessionActive = errors.New("a workout is already in progress")
)

// PushScheduler receives best-effort single-row push requests after local writes.
type PushScheduler interface {
	Schedule(family, id string)
}

// Connectivity is the reachability gate consulted before remote reads.
type Connectivity interface {
	IsInternetAvailable() bool
}

// Deps are the collaborators every repository shares.
type Deps struct {
	Store  *storage.Store
	Remote remote.Store
	Online Connectivity
	Pusher PushScheduler
	Log    logrus.FieldLogger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Remote == nil {
		d.Remote = remote.Offline{}
	}
	if d.Online == nil {
		d.Online = offline{}
	}
	if d.Pusher == nil {
		d.Pusher = noopPusher{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type offline struct{}

func (offline) IsInternetAvailable() bool { return false }

type noopPusher struct{}

func (noopPusher) Schedule(string, string) {}

// Entity is the CRUD core of one family's repository.
type Entity[E any, R any, P storage.RowPtr[R]] struct {
	deps  Deps
	table *storage.Table[R, P]
	codec mapper.Codec[E, R, P]
	log   logrus.FieldLogger
}

func newEntity[E any, R any, P storage.RowPtr[R]](deps Deps, table *storage.Table[R, P], codec mapper.Codec[E, R, P]) *Entity[E, R, P] {
	deps = deps.withDefaults()
	return &Entity[E, R, P]{
		deps:  deps,
		table: table,
		codec: codec,
		log:   deps.Log.WithFields(logrus.Fields{"component": "repository", "family": codec.Collection}),
	}
}

// Family returns the family name used for push scheduling.
func (r *Entity[E, R, P]) Family() string {
	return r.codec.Collection
}

func (r *Entity[E, R, P]) validate(e *E) error {
	if r.codec.ID(e) == "" {
		return fmt.Errorf("%s: %w: missing id", r.codec.Collection, ErrInvalid)
	}
	if !r.codec.Global && r.codec.Owner(e) == "" {
		return fmt.Errorf("%s %s: %w: missing owning user", r.codec.Collection, r.codec.ID(e), ErrInvalid)
	}
	return nil
}

// Create assigns an id if missing and persists the entity locally.
func (r *Entity[E, R, P]) Create(ctx context.Context, e *E) (*E, error) {
	if r.codec.ID(e) == "" {
		r.codec.SetID(e, uuid.New().String())
	}
	return r.save(ctx, e)
}

// Update persists changes to an existing entity.
func (r *Entity[E, R, P]) Update(ctx context.Context, e *E) (*E, error) {
	if err := r.validate(e); err != nil {
		return nil, err
	}
	if _, err := r.table.Get(ctx, r.codec.ID(e)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, r.codec.ID(e), ErrNotFound)
		}
		return nil, err
	}
	return r.save(ctx, e)
}

// Save upserts the entity regardless of whether it exists.
func (r *Entity[E, R, P]) Save(ctx context.Context, e *E) (*E, error) {
	return r.save(ctx, e)
}

func (r *Entity[E, R, P]) save(ctx context.Context, e *E) (*E, error) {
	if err := r.validate(e); err != nil {
		return nil, err
	}
	r.codec.Touch(e, r.deps.Now())
	row, err := r.codec.ToRow(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.codec.Collection, err)
	}
	if err := r.table.Put(ctx, row); err != nil {
		return nil, err
	}
	r.deps.Pusher.Schedule(r.codec.Collection, r.codec.ID(e))
	return e, nil
}

// Delete tombstones the entity; the next push removes it remotely.
func (r *Entity[E, R, P]) Delete(ctx context.Context, id string) error {
	if err := r.table.Tombstone(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
		}
		return err
	}
	r.deps.Pusher.Schedule(r.codec.Collection, id)
	return nil
}

// Get reads the local copy. On a miss while online it fetches the remote
// document once and backfills it as a clean row.
func (r *Entity[E, R, P]) Get(ctx context.Context, id string) (*E, error) {
	row, err := r.table.Lookup(ctx, id)
	switch {
	case err == nil && row.Meta().Deleted:
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
	case err == nil:
		e, err := r.codec.FromRow(row)
		if err != nil {
			r.log.WithError(err).WithField("id", id).Warn("skipping malformed local row")
			return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
		}
		return e, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	if !r.deps.Online.IsInternetAvailable() {
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
	}
	return r.fetchRemote(ctx, id)
}

func (r *Entity[E, R, P]) fetchRemote(ctx context.Context, id string) (*E, error) {
	log := r.log.WithField("id", id)
	doc, err := r.deps.Remote.Get(ctx, r.codec.Collection, id)
	if err != nil {
		if !errors.Is(err, remote.ErrNotFound) {
			log.WithError(err).Warn("remote read failed")
		}
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
	}
	e, err := r.codec.FromDocument(doc)
	if err != nil {
		log.WithError(err).Warn("skipping malformed remote document")
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
	}
	row, err := r.codec.ToRow(e)
	if err != nil {
		log.WithError(err).Warn("skipping unencodable remote document")
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, id, ErrNotFound)
	}
	if err := r.table.PutClean(ctx, row, r.deps.Now().UnixMilli()); err != nil {
		return nil, err
	}
	log.Debug("backfilled from remote")
	return e, nil
}

// ListForUser returns the user's live entities. Malformed rows are skipped.
func (r *Entity[E, R, P]) ListForUser(ctx context.Context, userID string) ([]*E, error) {
	rows, err := r.table.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.decodeRows(rows), nil
}

// Resolve returns the user's entity whose id is idOrPrefix or starts with it.
// An ambiguous prefix is ErrInvalid.
func (r *Entity[E, R, P]) Resolve(ctx context.Context, userID, idOrPrefix string) (*E, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if e, err := r.Get(ctx, idOrPrefix); err == nil {
		if r.codec.Global || r.codec.Owner(e) == userID {
			return e, nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	all, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var match *E
	for _, e := range all {
		if !strings.HasPrefix(r.codec.ID(e), idOrPrefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s prefix %q is ambiguous", ErrInvalid, r.codec.Collection, idOrPrefix)
		}
		match = e
	}
	if match == nil {
		return nil, fmt.Errorf("%s %s: %w", r.codec.Collection, idOrPrefix, ErrNotFound)
	}
	return match, nil
}

// ListAll returns every live entity. Malformed rows are skipped.
func (r *Entity[E, R, P]) ListAll(ctx context.Context) ([]*E, error) {
	rows, err := r.table.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.decodeRows(rows), nil
}

func (r *Entity[E, R, P]) decodeRows(rows []P) []*E {
	out := make([]*E, 0, len(rows))
	for _, row := range rows {
		e, err := r.codec.FromRow(row)
		if err != nil {
			r.log.WithError(err).WithField("id", row.RowID()).Warn("skipping malformed local row")
			continue
		}
		out = append(out, e)
	}
	return out
}

// Watch streams the user's entities: a snapshot now and a fresh one after
// every change to the family's table. The channel closes when ctx ends.
func (r *Entity[E, R, P]) Watch(ctx context.Context, userID string) <-chan []*E {
	return r.watch(ctx, func(ctx context.Context) ([]*E, error) {
		return r.ListForUser(ctx, userID)
	})
}

func (r *Entity[E, R, P]) watch(ctx context.Context, snapshot func(context.Context) ([]*E, error)) <-chan []*E {
	out := make(chan []*E)
	changes, cancel := r.deps.Store.Subscribe(r.table.Name())
	go func() {
		defer close(out)
		defer cancel()
		for {
			items, err := snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.WithError(err).Warn("watch snapshot failed")
			} else {
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
