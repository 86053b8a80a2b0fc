// Package backendtest holds the behavior every types.Backend must show,
// written once and run against each store from its own tests.
package backendtest

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Factory returns a fresh, empty, writable backend. The backend is closed by
// the suite.
type Factory func(t *testing.T) types.Backend

// Valve returns one of three valve records that differ in name, _id, prefix
// and z.
func Valve(n int) types.Record {
	names := map[int]struct {
		name, id, prefix string
		z                int64
	}{
		1: {"valve1", "VALVE1", "BASE:VGC1:PV", 300},
		2: {"valve2", "VALVE2", "BASE:VGC2:PV", 301},
		3: {"valve3", "VALVE3", "BASE:VGC3:PV", 301},
	}
	v := names[n]
	return types.Record{
		"_id":              v.id,
		"name":             v.name,
		"z":                v.z,
		"prefix":           v.prefix,
		"beamline":         "LCLS",
		"mps":              "MPS:VGC:PV",
		"type":             "OphydItem",
		"location_group":   "LOC",
		"functional_group": "FUNC",
		"device_class":     "types.SimpleNamespace",
		"args":             []any{},
		"kwargs":           map[string]any{"hi": "oh hello"},
	}
}

// SeedValves inserts the three valve records.
func SeedValves(t *testing.T, b types.Writer) {
	t.Helper()
	ctx := context.Background()
	for n := 1; n <= 3; n++ {
		v := Valve(n)
		require.NoError(t, b.Save(ctx, v.ID(), v, true))
	}
}

// Collect drains seq, failing the test on the first error.
func Collect(t *testing.T, seq iter.Seq2[types.Record, error]) []types.Record {
	t.Helper()
	var out []types.Record
	for rec, err := range seq {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

// IDs returns the _id of each record.
func IDs(recs []types.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID()
	}
	return ids
}

// Run exercises the types.Backend contract against backends from open.
func Run(t *testing.T, open Factory) {
	t.Helper()
	ctx := context.Background()

	fresh := func(t *testing.T) types.Backend {
		b := open(t)
		t.Cleanup(func() { b.Close() })
		return b
	}

	t.Run("InsertThenFind", func(t *testing.T) {
		b := fresh(t)
		want := Valve(1)
		require.NoError(t, b.Save(ctx, "VALVE1", want, true))

		got, err := b.Find(ctx, "VALVE1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("DoubleInsert", func(t *testing.T) {
		b := fresh(t)
		require.NoError(t, b.Save(ctx, "VALVE1", Valve(1), true))
		err := b.Save(ctx, "VALVE1", Valve(1), true)
		assert.True(t, errors.Is(err, types.ErrDuplicateID), "got %v", err)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		b := fresh(t)
		err := b.Save(ctx, "VALVE1", Valve(1), false)
		assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
	})

	t.Run("Update", func(t *testing.T) {
		b := fresh(t)
		require.NoError(t, b.Save(ctx, "VALVE1", Valve(1), true))
		v := Valve(1)
		v["z"] = int64(310)
		v["note"] = "moved"
		require.NoError(t, b.Save(ctx, "VALVE1", v, false))

		got, err := b.Find(ctx, "VALVE1")
		require.NoError(t, err)
		assert.Equal(t, int64(310), got["z"])
		assert.Equal(t, "moved", got["note"])
	})

	t.Run("DeleteThenFind", func(t *testing.T) {
		b := fresh(t)
		SeedValves(t, b)
		require.NoError(t, b.Delete(ctx, "VALVE2"))

		_, err := b.Find(ctx, "VALVE2")
		assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)

		err = b.Delete(ctx, "VALVE2")
		assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)

		ids, err := b.AllIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"VALVE1", "VALVE3"}, ids)
	})

	t.Run("FindMissing", func(t *testing.T) {
		b := fresh(t)
		_, err := b.Find(ctx, "nope")
		assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
	})

	t.Run("FindAllRestartable", func(t *testing.T) {
		b := fresh(t)
		SeedValves(t, b)
		seq := b.FindAll(ctx)

		first := Collect(t, seq)
		second := Collect(t, seq)
		assert.ElementsMatch(t, []string{"VALVE1", "VALVE2", "VALVE3"}, IDs(first))
		assert.ElementsMatch(t, first, second)

		require.NoError(t, b.Save(ctx, "extra", types.Record{"name": "extra", "type": "HappiItem"}, true))
		assert.Len(t, Collect(t, seq), 4, "each range re-reads the store")
	})

	t.Run("FindAllStopsEarly", func(t *testing.T) {
		b := fresh(t)
		SeedValves(t, b)
		n := 0
		for _, err := range b.FindAll(ctx) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("InvalidArguments", func(t *testing.T) {
		b := fresh(t)
		err := b.Save(ctx, "", Valve(1), true)
		assert.True(t, errors.Is(err, types.ErrInvalidID), "got %v", err)

		err = b.Save(ctx, "OTHER", Valve(1), true)
		assert.True(t, errors.Is(err, types.ErrInvalidRecord), "got %v", err)
	})

	t.Run("SaveSetsID", func(t *testing.T) {
		b := fresh(t)
		require.NoError(t, b.Save(ctx, "bare", types.Record{"name": "bare"}, true))
		got, err := b.Find(ctx, "bare")
		require.NoError(t, err)
		assert.Equal(t, "bare", got.ID())
	})

	t.Run("Search", func(t *testing.T) {
		b := fresh(t)
		s, ok := b.(types.Searcher)
		if !ok {
			t.Skip("backend does not implement types.Searcher")
		}
		SeedValves(t, b)
		re, err := types.NewRegex(`BASE:VGC[23]:PV`)
		require.NoError(t, err)

		tests := []struct {
			name string
			q    types.Query
			want []string
		}{
			{"equals", types.Query{"prefix": types.Equals{Value: "BASE:VGC1:PV"}}, []string{"VALVE1"}},
			{"range", types.Query{"z": types.Range{Min: 300, Max: 301}}, []string{"VALVE1", "VALVE2", "VALVE3"}},
			{"narrow range", types.Query{"z": types.Range{Min: 300.5, Max: 302}}, []string{"VALVE2", "VALVE3"}},
			{"in", types.Query{"name": types.In{Values: []any{"valve1", "valve3"}}}, []string{"VALVE1", "VALVE3"}},
			{"regex", types.Query{"prefix": re}, []string{"VALVE2", "VALVE3"}},
			{"numeric equals", types.Query{"z": types.Equals{Value: 301}}, []string{"VALVE2", "VALVE3"}},
			{"and", types.Query{"z": types.Equals{Value: int64(301)}, "name": types.Equals{Value: "valve2"}}, []string{"VALVE2"}},
			{"unknown key", types.Query{"nope": types.Equals{Value: "x"}}, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var got []string
				for _, rec := range Collect(t, s.Search(ctx, tt.q)) {
					if tt.q.Match(rec) {
						got = append(got, rec.ID())
					}
				}
				assert.ElementsMatch(t, tt.want, got)
			})
		}
	})
}
