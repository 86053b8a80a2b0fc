// Package mongo stores registry records as documents of one MongoDB
// collection, keyed by _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Store implements types.Backend and types.Searcher over a Collection.
// Single-document operations carry MongoDB's per-document atomicity.
type Store struct {
	coll    Collection
	client  *mongo.Client
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds every operation. Zero leaves the caller's context as is.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// New returns a store over coll. Close does not disconnect anything.
func New(coll Collection, opts ...Option) *Store {
	s := &Store{coll: coll, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials cfg.URI and returns a store over the configured collection.
// Empty fields take the types.DefaultMongo* values.
func Connect(ctx context.Context, cfg types.MongoConfig, opts ...Option) (*Store, error) {
	uri := orDefault(cfg.URI, types.DefaultMongoURI)
	db := orDefault(cfg.Database, types.DefaultMongoDatabase)
	coll := orDefault(cfg.Collection, types.DefaultMongoCollection)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = types.DefaultMongoTimeout
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	s := New(client.Database(db).Collection(coll), append([]Option{WithTimeout(timeout)}, opts...)...)
	s.client = client
	s.log.Infow("connected to mongo", "database", db, "collection", coll)
	return s, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func byID(id string) bson.D { return bson.D{{Key: types.IDKey, Value: id}} }

// Find returns the record stored under id.
func (s *Store) Find(ctx context.Context, id string) (types.Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var doc bson.M
	err := s.coll.FindOne(ctx, byID(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find %q: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", id, err)
	}
	return fromBSON(doc)
}

// FindAll streams every document in _id order.
func (s *Store) FindAll(ctx context.Context) iter.Seq2[types.Record, error] {
	return s.find(ctx, bson.D{})
}

// Search yields the documents matching the translated filter. See Filter.
func (s *Store) Search(ctx context.Context, q types.Query) iter.Seq2[types.Record, error] {
	return s.find(ctx, Filter(q))
}

func (s *Store) find(ctx context.Context, filter bson.D) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		ctx, cancel := s.bound(ctx)
		defer cancel()
		cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: types.IDKey, Value: 1}}))
		if err != nil {
			yield(nil, fmt.Errorf("finding documents: %w", err))
			return
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var doc bson.M
			if err := cur.Decode(&doc); err != nil {
				yield(nil, fmt.Errorf("decoding document: %w", err))
				return
			}
			rec, err := fromBSON(doc)
			if !yield(rec, err) || err != nil {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, fmt.Errorf("reading cursor: %w", err))
		}
	}
}

// AllIDs returns every stored id in order.
func (s *Store) AllIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: types.IDKey, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding ids: %w", err)
	}
	defer cur.Close(ctx)
	ids := []string{}
	for cur.Next(ctx) {
		var doc struct {
			ID any `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding id: %w", err)
		}
		ids = append(ids, idString(doc.ID))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("reading cursor: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save inserts or replaces the document keyed by id.
func (s *Store) Save(ctx context.Context, id string, record types.Record, insert bool) error {
	if err := types.CheckSave(id, record); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	rec, err := types.Canonical(record)
	if err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	rec[types.IDKey] = id
	doc := bson.M(rec)

	ctx, cancel := s.bound(ctx)
	defer cancel()
	if insert {
		_, err := s.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("save %q: %w", id, types.ErrDuplicateID)
		}
		if err != nil {
			return fmt.Errorf("save %q: %w", id, err)
		}
		return nil
	}
	res, err := s.coll.ReplaceOne(ctx, byID(id), doc)
	if err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("save %q: %w", id, types.ErrNotFound)
	}
	return nil
}

// Delete removes the document keyed by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %q: %w", id, types.ErrNotFound)
	}
	return nil
}

// Close disconnects the client opened by Connect.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	ctx, cancel := context.WithTimeout(context.Background(), types.DefaultMongoTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// fromBSON converts a decoded document to a canonical record.
func fromBSON(doc bson.M) (types.Record, error) {
	rec := make(types.Record, len(doc))
	for k, v := range doc {
		rec[k] = plain(v)
	}
	if id, ok := rec[types.IDKey]; ok {
		rec[types.IDKey] = idString(id)
	}
	return types.Canonical(rec)
}

// plain replaces driver container types with maps and slices.
func plain(v any) any {
	switch val := v.(type) {
	case primitive.M:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = plain(e)
		}
		return m
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.A:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = plain(e)
		}
		return s
	case []any:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = plain(e)
		}
		return s
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = plain(e)
		}
		return m
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}
