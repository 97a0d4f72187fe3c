// ABOUTME: Unit tests for the Charm KV document store.
// ABOUTME: Uses an in-memory kvStore so no Charm account is needed.
package charm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/fitsync/internal/remote"
)

type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	readOnly bool
	syncs    int
	syncErr  error
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (f *fakeKV) Get(k []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[string(k)]
	if !ok {
		return nil, badger.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(k, v []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[string(k)] = v
	return nil
}

func (f *fakeKV) Delete(k []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, string(k))
	return nil
}

func (f *fakeKV) Keys() ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

func (f *fakeKV) Sync() error {
	f.syncs++
	return f.syncErr
}

func (f *fakeKV) IsReadOnly() bool { return f.readOnly }
func (f *fakeKV) Reset() error     { f.data = map[string][]byte{}; return nil }
func (f *fakeKV) Close() error     { return nil }

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "completed_workouts:abc", string(key(remote.CollectionWorkouts, "abc")))
	assert.Equal(t, "abc", extractID("completed_workouts:abc", remote.CollectionWorkouts))
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	f := newFakeKV()
	s := newStore(f, true)

	doc := remote.Document{"id": "w1", "userId": "u1", "duration": 3600}
	require.NoError(t, s.Put(ctx, remote.CollectionWorkouts, "w1", doc))
	assert.Equal(t, 1, f.syncs)

	got, err := s.Get(ctx, remote.CollectionWorkouts, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got.Int64("duration"))
	assert.Equal(t, "u1", got.String("userId"))

	require.NoError(t, s.Delete(ctx, remote.CollectionWorkouts, "w1"))
	_, err = s.Get(ctx, remote.CollectionWorkouts, "w1")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	require.NoError(t, s.Delete(ctx, remote.CollectionWorkouts, "w1"), "delete is idempotent")
}

func TestListScopesByCollectionAndUser(t *testing.T) {
	ctx := context.Background()
	f := newFakeKV()
	s := newStore(f, false)

	require.NoError(t, s.Put(ctx, remote.CollectionUsers, "u1", remote.Document{"id": "u1", "userId": "u1"}))
	require.NoError(t, s.Put(ctx, remote.CollectionAuth, "a1", remote.Document{"id": "a1", "userId": "u1"}))
	require.NoError(t, s.Put(ctx, remote.CollectionAuth, "a2", remote.Document{"id": "a2", "userId": "u2"}))
	f.data["user_auth:broken"] = []byte("{not json")
	assert.Zero(t, f.syncs, "auto sync disabled")

	all, err := s.List(ctx, remote.CollectionAuth)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListByUser(ctx, remote.CollectionAuth, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a1", mine[0].String("id"))
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	f := newFakeKV()
	f.readOnly = true
	s := newStore(f, true)

	err := s.Put(context.Background(), remote.CollectionWorkouts, "w1", remote.Document{"id": "w1"})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, s.Delete(context.Background(), remote.CollectionWorkouts, "w1"), ErrReadOnly)
	assert.NoError(t, s.Refresh(context.Background()))
	assert.Zero(t, f.syncs)
}

func TestRefreshWrapsSyncError(t *testing.T) {
	f := newFakeKV()
	f.syncErr = errors.New("network down")
	s := newStore(f, false)

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}
