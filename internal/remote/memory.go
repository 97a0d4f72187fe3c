// ABOUTME: In-memory remote store for tests and offline development.
// ABOUTME: Documents are cloned through JSON to mimic wire round-trips.
package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a thread-safe in-memory Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Document

	// FailPut, when set, is consulted before every Put.
	FailPut func(collection, id string) error
	// FailGet, when set, is consulted before every Get.
	FailGet func(collection, id string) error
	// FailList, when set, is consulted before every List and ListByUser.
	FailList func(collection string) error

	puts int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]Document)}
}

func (m *Memory) Put(_ context.Context, collection, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		if err := m.FailPut(collection, id); err != nil {
			return err
		}
	}
	c, err := doc.Clone()
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Document)
	}
	m.data[collection][id] = c
	m.puts++
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailGet != nil {
		if err := m.FailGet(collection, id); err != nil {
			return nil, err
		}
	}
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone()
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) ListByUser(ctx context.Context, collection, userID string) ([]Document, error) {
	all, err := m.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	var out []Document
	for _, d := range all {
		if d.String(OwnerField) == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailList != nil {
		if err := m.FailList(collection); err != nil {
			return nil, err
		}
	}
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		c, err := m.data[collection][id].Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Len returns the number of documents in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[collection])
}

// Puts returns how many successful Put calls were made.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Raw stores a document as-is, bypassing encoding. Used to seed malformed data.
func (m *Memory) Raw(collection, id string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Document)
	}
	m.data[collection][id] = doc
}
