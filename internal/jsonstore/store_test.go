package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/happi/internal/backendtest"
	"github.com/mesh-intelligence/happi/pkg/types"
)

func TestStoreContract(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) types.Backend {
		s, err := Open(filepath.Join(t.TempDir(), "db.json"), true)
		require.NoError(t, err)
		return s
	})
}

func TestOpenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	_, err := Open(path, false)
	assert.True(t, errors.Is(err, ErrStoreMissing), "got %v", err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "file must not be created")

	_, err = Open("", true)
	assert.ErrorIs(t, err, types.ErrPathEmpty)
}

func TestOpenInitializeCreatesEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")

	s, err := Open(path, true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", strings.TrimSpace(string(data)))
	ids, err := s.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"alias": {"name": "alias", "_id": "alias", "z": 400, "prefix": "BASE:PV",
		"type": "OphydItem", "args": [], "kwargs": {"hi": "oh hello"}},
		"noid": {"name": "noid"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Open(path, false)
	require.NoError(t, err)

	rec, err := s.Find(context.Background(), "alias")
	require.NoError(t, err)
	assert.Equal(t, int64(400), rec["z"])
	assert.Equal(t, []any{}, rec["args"])
	assert.Equal(t, map[string]any{"hi": "oh hello"}, rec["kwargs"])

	rec, err = s.Find(context.Background(), "noid")
	require.NoError(t, err)
	assert.Equal(t, "noid", rec.ID(), "records take their key as _id")
}

func TestCorruptFile(t *testing.T) {
	ctx := context.Background()
	for name, doc := range map[string]string{
		"not json":     "{not json",
		"array root":   `[{"_id": "a"}]`,
		"scalar value": `{"a": 3}`,
		"huge number":  `{"a": {"_id": "a", "gain": 1e400}}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			s, err := Open(path, false)
			require.NoError(t, err)

			_, err = s.Find(ctx, "a")
			assert.True(t, errors.Is(err, ErrCorruptStore), "got %v", err)
			err = s.Save(ctx, "b", types.Record{"name": "bee"}, true)
			assert.True(t, errors.Is(err, ErrCorruptStore), "got %v", err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, doc, string(data), "a failed mutation leaves the file alone")
		})
	}
}

func TestFileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path, true)
	require.NoError(t, err)
	backendtest.SeedValves(t, s)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var root map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Len(t, root, 3)
	assert.Equal(t, "VALVE2", root["VALVE2"]["_id"])
	assert.Less(t, strings.Index(string(data), `"VALVE1"`), strings.Index(string(data), `"VALVE2"`), "keys are sorted")
	assert.Contains(t, string(data), "\n    \"VALVE1\": {", "document is indented")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")

	require.NoError(t, s.Delete(ctx, "VALVE1"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "VALVE1")
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db.json"), true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	names := []string{"aa1", "bb2", "cc3", "dd4", "ee5", "ff6", "gg7", "hh8"}
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, n, types.Record{"name": n}, true))
		}(n)
	}
	wg.Wait()

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, names, ids)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db.json"), true)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Find(ctx, "x")
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.ErrorIs(t, s.Delete(ctx, "x"), types.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "db.json"), true)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.AllIDs(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWritePreservesFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	require.NoError(t, os.Chmod(path, 0o664))

	s, err := Open(path, false)
	require.NoError(t, err)
	backendtest.SeedValves(t, s)
	require.NoError(t, s.Delete(ctx, "VALVE2"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o664), info.Mode().Perm())
}

func TestInitializedFileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "db.json")
	_, err := Open(path, true)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, newFileMode, info.Mode().Perm())
}
