// ABOUTME: Charm KV backed remote document store.
// ABOUTME: Documents are JSON values under "collection:id" keys, synced to Charm Cloud.
package charm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/fitsync/internal/remote"
)

const (
	DefaultDBName = "fitsync"
	DefaultHost   = "charm.2389.dev"

	keySep = ":"
)

// ErrReadOnly is returned for writes while another process holds the KV lock.
var ErrReadOnly = errors.New("cannot write: database is locked by another process (MCP server?)")

// kvStore is the subset of *kv.KV the store needs.
type kvStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	IsReadOnly() bool
	Reset() error
	Close() error
}

// Options configure Open.
type Options struct {
	DBName   string
	Host     string
	AutoSync bool
}

// Store implements remote.Store on a Charm KV database.
type Store struct {
	kv       kvStore
	autoSync bool
	mu       sync.RWMutex
	log      *logrus.Entry
}

var (
	_ remote.Store     = (*Store)(nil)
	_ remote.Refresher = (*Store)(nil)
)

// Open opens the named KV database against the given Charm host and pulls
// remote data unless the database is read-only.
func Open(opts Options) (*Store, error) {
	if opts.DBName == "" {
		opts.DBName = DefaultDBName
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	// Set server before opening KV
	if err := os.Setenv("CHARM_HOST", opts.Host); err != nil {
		return nil, fmt.Errorf("set charm host: %w", err)
	}

	db, err := kv.OpenWithDefaultsFallback(opts.DBName)
	if err != nil {
		return nil, fmt.Errorf("open charm kv %s: %w", opts.DBName, err)
	}

	s := newStore(db, opts.AutoSync)
	if !db.IsReadOnly() {
		if err := db.Sync(); err != nil {
			s.log.WithError(err).Warn("initial charm sync failed")
		}
	}
	return s, nil
}

func newStore(db kvStore, autoSync bool) *Store {
	return &Store{
		kv:       db,
		autoSync: autoSync,
		log:      logrus.WithField("component", "charm"),
	}
}

// Close closes the KV database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv != nil {
		return s.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (s *Store) IsReadOnly() bool {
	return s.kv.IsReadOnly()
}

// Refresh pulls remote changes into the local replica.
func (s *Store) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kv.IsReadOnly() {
		return nil
	}
	if err := s.kv.Sync(); err != nil {
		return fmt.Errorf("charm sync: %w", err)
	}
	return nil
}

// ID returns the Charm user ID for the current account.
func ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local KV data and rebuilds it from Charm Cloud.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Reset()
}

// syncIfEnabled pushes after a write. Failures only delay propagation;
// the write itself is already durable in the local replica.
func (s *Store) syncIfEnabled() {
	if s.autoSync && !s.kv.IsReadOnly() {
		if err := s.kv.Sync(); err != nil {
			s.log.WithError(err).Debug("charm sync after write failed")
		}
	}
}

func key(collection, id string) []byte {
	return []byte(collection + keySep + id)
}

func extractID(k, collection string) string {
	return strings.TrimPrefix(k, collection+keySep)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc remote.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := s.kv.Set(key(collection, id), data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.syncIfEnabled()
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.kv.Get(key(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(data)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := s.kv.Delete(key(collection, id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	s.syncIfEnabled()
	return nil
}

func (s *Store) ListByUser(ctx context.Context, collection, userID string) ([]remote.Document, error) {
	all, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if d.String(remote.OwnerField) == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

// List scans every key of the collection. Values that fail to decode are
// skipped and logged.
func (s *Store) List(ctx context.Context, collection string) ([]remote.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, err := s.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", collection, err)
	}

	prefix := []byte(collection + keySep)
	docs := []remote.Document{}
	for _, k := range keys {
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val, err := s.kv.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		doc, err := decode(val)
		if err != nil {
			s.log.WithError(err).WithField("id", extractID(string(k), collection)).Warn("skipping undecodable document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decode(data []byte) (remote.Document, error) {
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc == nil {
		doc = remote.Document{}
	}
	return doc, nil
}
