// Package jsonstore keeps the whole registry in one JSON file.
//
// The file root is an object keyed by _id whose values are records. Every
// mutation reads the file, changes the document set in memory and writes it
// back through a temp file in the same directory that is fsynced and renamed
// over the original, so the visible file is always complete. Edits by other
// processes between the read and the rename are lost (last writer wins).
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Store errors.
var (
	ErrStoreMissing = errors.New("json store file does not exist")
	ErrCorruptStore = errors.New("json store file is corrupt")
)

// Store is a types.Backend over one JSON file. Mutations within one process
// are serialized; a Store is safe for concurrent use.
type Store struct {
	path   string
	mu     sync.Mutex
	closed bool
	log    *zap.SugaredLogger
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

// Open returns a store over path. A missing file is created holding an
// empty document set when initialize is set, and is ErrStoreMissing
// otherwise.
func Open(path string, initialize bool, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, types.ErrPathEmpty
	}
	s := &Store{path: path, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return s, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case !initialize:
		return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := writeFile(path, map[string]types.Record{}); err != nil {
		return nil, err
	}
	s.log.Infow("initialized json store", "path", path)
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// Find returns the record stored under id.
func (s *Store) Find(ctx context.Context, id string) (types.Record, error) {
	docs, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := docs[id]
	if !ok {
		return nil, fmt.Errorf("find %q: %w", id, types.ErrNotFound)
	}
	return rec, nil
}

// FindAll yields every record in id order. Each range re-reads the file.
func (s *Store) FindAll(ctx context.Context) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		docs, err := s.read(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, id := range sortedIDs(docs) {
			if !yield(docs[id], nil) {
				return
			}
		}
	}
}

// AllIDs returns every stored id in order.
func (s *Store) AllIDs(ctx context.Context) ([]string, error) {
	docs, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return sortedIDs(docs), nil
}

// Save writes record under id. See types.Writer for the insert semantics.
func (s *Store) Save(ctx context.Context, id string, record types.Record, insert bool) error {
	if err := types.CheckSave(id, record); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	rec, err := types.Canonical(record)
	if err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	rec[types.IDKey] = id

	return s.mutate(ctx, func(docs map[string]types.Record) error {
		_, exists := docs[id]
		if insert && exists {
			return fmt.Errorf("save %q: %w", id, types.ErrDuplicateID)
		}
		if !insert && !exists {
			return fmt.Errorf("save %q: %w", id, types.ErrNotFound)
		}
		docs[id] = rec
		return nil
	})
}

// Delete removes the record stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(docs map[string]types.Record) error {
		if _, ok := docs[id]; !ok {
			return fmt.Errorf("delete %q: %w", id, types.ErrNotFound)
		}
		delete(docs, id)
		return nil
	})
}

// Close marks the store closed. Later calls fail with types.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) read(ctx context.Context) (map[string]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrClosed
	}
	return readFile(s.path)
}

// mutate runs fn over the loaded document set and persists the result when
// fn succeeds. The lock is held across the whole read-modify-write.
func (s *Store) mutate(ctx context.Context, fn func(map[string]types.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrClosed
	}
	docs, err := readFile(s.path)
	if err != nil {
		return err
	}
	if err := fn(docs); err != nil {
		return err
	}
	if err := writeFile(s.path, docs); err != nil {
		return err
	}
	s.log.Debugw("json store written", "path", s.path, "records", len(docs))
	return nil
}

// readFile loads the document set. Records without an _id take their key.
func readFile(path string) (map[string]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	docs := make(map[string]types.Record, len(raw))
	for id, msg := range raw {
		rec, err := types.DecodeRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: record %q: %v", ErrCorruptStore, path, id, err)
		}
		if _, ok := rec[types.IDKey]; !ok {
			rec[types.IDKey] = id
		}
		docs[id] = rec
	}
	return docs, nil
}

// writeFile atomically replaces path with the indented document set using
// the temp-file, fsync, rename pattern.
func writeFile(path string, docs map[string]types.Record) error {
	data, err := json.MarshalIndent(docs, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".happi-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(fileMode(path)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// newFileMode applies to a store file that does not exist yet.
const newFileMode os.FileMode = 0o644

// fileMode returns the permission bits of path, or newFileMode when it
// cannot be read.
func fileMode(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return newFileMode
	}
	return info.Mode().Perm()
}

func sortedIDs(docs map[string]types.Record) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
