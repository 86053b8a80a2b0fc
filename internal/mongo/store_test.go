package mongo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesh-intelligence/happi/internal/backendtest"
	"github.com/mesh-intelligence/happi/pkg/types"
)

// fakeCollection keeps documents in memory. Find ignores its filter, which
// is recorded for inspection, and returns every document.
type fakeCollection struct {
	mu      sync.Mutex
	docs    map[string][]byte
	filters []bson.D
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string][]byte)}
}

func filterID(filter any) string {
	for _, e := range filter.(bson.D) {
		if e.Key == "_id" {
			return e.Value.(string)
		}
	}
	return ""
}

func decode(raw []byte) bson.M {
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

func (f *fakeCollection) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.docs[filterID(filter)]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(decode(raw), nil, nil)
}

func (f *fakeCollection) Find(_ context.Context, filter any, _ ...*options.FindOptions) (*mongo.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter.(bson.D))
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]any, len(ids))
	for i, id := range ids {
		docs[i] = decode(f.docs[id])
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeCollection) InsertOne(_ context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	id := bson.Raw(raw).Lookup("_id").StringValue()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; ok {
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	}
	f.docs[id] = raw
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

func (f *fakeCollection) ReplaceOne(_ context.Context, filter any, replacement any, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	raw, err := bson.Marshal(replacement)
	if err != nil {
		return nil, err
	}
	id := filterID(filter)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return &mongo.UpdateResult{}, nil
	}
	f.docs[id] = raw
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	id := filterID(filter)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return &mongo.DeleteResult{}, nil
	}
	delete(f.docs, id)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func TestStoreContract(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) types.Backend {
		return New(newFakeCollection())
	})
}

func TestSearchSendsFilter(t *testing.T) {
	ctx := context.Background()
	coll := newFakeCollection()
	s := New(coll)
	backendtest.SeedValves(t, s)

	q := types.Query{"prefix": types.Equals{Value: "BASE:VGC1:PV"}}
	var matched []string
	for rec, err := range s.Search(ctx, q) {
		require.NoError(t, err)
		if q.Match(rec) {
			matched = append(matched, rec.ID())
		}
	}
	assert.Equal(t, []string{"VALVE1"}, matched)
	require.NotEmpty(t, coll.filters)
	assert.Equal(t, bson.D{{Key: "prefix", Value: "BASE:VGC1:PV"}}, coll.filters[len(coll.filters)-1])
}

func TestFilter(t *testing.T) {
	re, err := types.NewRegex("BASE:.*")
	require.NoError(t, err)

	tests := []struct {
		name string
		q    types.Query
		want bson.D
	}{
		{"empty", types.Query{}, bson.D{}},
		{"equals", types.Query{"prefix": types.Equals{Value: "BASE:PV"}}, bson.D{{Key: "prefix", Value: "BASE:PV"}}},
		{"equals bool", types.Query{"active": types.Equals{Value: true}}, bson.D{{Key: "active", Value: true}}},
		{"equals list omitted", types.Query{"args": types.Equals{Value: []any{}}}, bson.D{}},
		{
			"in",
			types.Query{"name": types.In{Values: []any{"valve1", "valve2"}}},
			bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: []any{"valve1", "valve2"}}}}},
		},
		{"empty in omitted", types.Query{"name": types.In{}}, bson.D{}},
		{
			"range",
			types.Query{"z": types.Range{Min: 300, Max: 301}},
			bson.D{{Key: "z", Value: bson.D{{Key: "$gte", Value: float64(300)}, {Key: "$lte", Value: float64(301)}}}},
		},
		{
			"regex",
			types.Query{"prefix": re},
			bson.D{{Key: "prefix", Value: bson.D{{Key: "$regex", Value: "^(?:BASE:.*)$"}}}},
		},
		{
			"keys sorted",
			types.Query{"z": types.Equals{Value: int64(300)}, "beamline": types.Equals{Value: "LCLS"}},
			bson.D{{Key: "beamline", Value: "LCLS"}, {Key: "z", Value: int64(300)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(tt.q))
		})
	}
}

func TestFromBSONNormalizes(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":    oid,
		"name":   "alias",
		"z":      int32(400),
		"args":   primitive.A{"{{prefix}}", int32(1)},
		"kwargs": primitive.D{{Key: "hi", Value: "oh hello"}},
		"nested": primitive.M{"deep": primitive.A{primitive.M{"n": int64(2)}}},
	}

	rec, err := fromBSON(doc)
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), rec.ID())
	assert.Equal(t, int64(400), rec["z"])
	assert.Equal(t, []any{"{{prefix}}", int64(1)}, rec["args"])
	assert.Equal(t, map[string]any{"hi": "oh hello"}, rec["kwargs"])
	assert.Equal(t, map[string]any{"deep": []any{map[string]any{"n": int64(2)}}}, rec["nested"])
}

func TestDuplicateKeyMapsToDuplicateID(t *testing.T) {
	s := New(newFakeCollection())
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "alias", types.Record{"name": "alias"}, true))

	err := s.Save(ctx, "alias", types.Record{"name": "alias"}, true)
	assert.True(t, errors.Is(err, types.ErrDuplicateID), "got %v", err)
}

func TestCloseWithoutClient(t *testing.T) {
	assert.NoError(t, New(newFakeCollection()).Close())
}
