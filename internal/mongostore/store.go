// ABOUTME: MongoDB backed remote document store.
// ABOUTME: One Mongo collection per entity collection, documents keyed by _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harperreed/fitsync/internal/remote"
)

const (
	DefaultDatabase = "fitsync"

	connectTimeout = 30 * time.Second
	pingTimeout    = 10 * time.Second
)

// Store implements remote.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logrus.Entry
}

var _ remote.Store = (*Store)(nil)

// Connect dials uri, pings the server and ensures owner indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetServerSelectionTimeout(pingTimeout)

	client, err := mongo.Connect(dialCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		log:    logrus.WithFields(logrus.Fields{"component": "mongo", "database": database}),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.log.Info("connected to MongoDB")
	return s, nil
}

// ensureIndexes adds a userId index to every per-user collection.
func (s *Store) ensureIndexes(ctx context.Context) error {
	for _, name := range []string{
		remote.CollectionUsers, remote.CollectionAuth, remote.CollectionProfiles,
		remote.CollectionStats, remote.CollectionProgress, remote.CollectionTemplates,
		remote.CollectionWorkouts, remote.CollectionCategories,
	} {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: remote.OwnerField, Value: 1}},
			Options: options.Index().SetName("idx_user"),
		}
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects from the server.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc remote.Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, toBSON(id, doc), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, collection, userID string) ([]remote.Document, error) {
	return s.find(ctx, collection, bson.M{remote.OwnerField: userID})
}

func (s *Store) List(ctx context.Context, collection string) ([]remote.Document, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *Store) find(ctx context.Context, collection string, filter bson.M) ([]remote.Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	docs := []remote.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			s.log.WithError(err).WithField("collection", collection).Warn("skipping undecodable document")
			continue
		}
		docs = append(docs, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return docs, nil
}

func toBSON(id string, doc remote.Document) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["_id"] = id
	return out
}

// fromBSON converts a decoded Mongo document to plain maps, slices and
// primitives. Dates become epoch millis.
func fromBSON(raw bson.M) remote.Document {
	out := make(remote.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		out[k] = normalize(v)
	}
	if _, ok := out["id"]; !ok {
		if id, ok := raw["_id"].(string); ok {
			out["id"] = id
		}
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalize(e)
		}
		return s
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalize(e)
		}
		return s
	case int32:
		return int64(t)
	case primitive.DateTime:
		return int64(t)
	case time.Time:
		return t.UnixMilli()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}
