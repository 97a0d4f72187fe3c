// ABOUTME: Remote document store contract shared by every cloud backend.
// ABOUTME: One collection per entity type, documents addressed by entity id.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrOffline is returned by stores that cannot reach their backend.
	ErrOffline = errors.New("remote store unavailable")
)

// Collection names.
const (
	CollectionUsers        = "users"
	CollectionAuth         = "user_auth"
	CollectionProfiles     = "user_profiles"
	CollectionStats        = "user_stats"
	CollectionAchievements = "achievements"
	CollectionProgress     = "achievement_progress"
	CollectionTemplates    = "workout_templates"
	CollectionWorkouts     = "completed_workouts"
	CollectionCategories   = "workout_categories"
)

// OwnerField is the document field naming the owning user.
const OwnerField = "userId"

// Store is a cloud document collection store.
type Store interface {
	// Put upserts a document by id.
	Put(ctx context.Context, collection, id string, doc Document) error
	// Get returns ErrNotFound when the document is absent.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Delete is idempotent.
	Delete(ctx context.Context, collection, id string) error
	// ListByUser returns documents whose OwnerField equals userID.
	ListByUser(ctx context.Context, collection, userID string) ([]Document, error)
	// List returns every document of a collection.
	List(ctx context.Context, collection string) ([]Document, error)
}

// Offline is a Store for local-only operation. Every call fails with ErrOffline.
type Offline struct{}

func (Offline) Put(context.Context, string, string, Document) error { return ErrOffline }
func (Offline) Get(context.Context, string, string) (Document, error) {
	return nil, ErrOffline
}
func (Offline) Delete(context.Context, string, string) error { return ErrOffline }
func (Offline) ListByUser(context.Context, string, string) ([]Document, error) {
	return nil, ErrOffline
}
func (Offline) List(context.Context, string) ([]Document, error) { return nil, ErrOffline }

// Refresher is implemented by stores that keep a local replica and must
// pull from their backend before reads reflect other devices' writes.
type Refresher interface {
	Refresh(ctx context.Context) error
}
