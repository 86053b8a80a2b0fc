// Package sqlite stores registry records as JSON documents in one SQLite
// table, through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Backend implements types.Backend and types.Searcher over a SQLite file.
type Backend struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
	log    *zap.SugaredLogger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// Open opens or creates the database at path and ensures the items table
// exists. A missing file is created only when initialize is set.
func Open(ctx context.Context, path string, initialize bool, opts ...Option) (*Backend, error) {
	if path == "" {
		return nil, types.ErrPathEmpty
	}
	b := &Backend{path: path, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(b)
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !initialize {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps writes serialized and lets ":memory:" databases
	// survive across statements.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	b.db = db
	b.log.Debugw("opened sqlite store", "path", path)
	return b, nil
}

// ErrDatabaseMissing is returned by Open for a missing file without
// initialize.
var ErrDatabaseMissing = errors.New("sqlite database does not exist")

// Find returns the record stored under id.
func (b *Backend) Find(ctx context.Context, id string) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrClosed
	}
	var doc string
	err := b.db.QueryRowContext(ctx, selectDocument, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %q: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", id, err)
	}
	return types.DecodeRecord([]byte(doc))
}

// FindAll yields every record in id order. Each range runs a fresh query.
func (b *Backend) FindAll(ctx context.Context) iter.Seq2[types.Record, error] {
	return b.query(ctx, selectAll)
}

// Search narrows q in SQL where it can and yields the candidates. Equality
// and set conditions on scalars and numeric ranges are pushed down; other
// conditions are checked by the caller.
func (b *Backend) Search(ctx context.Context, q types.Query) iter.Seq2[types.Record, error] {
	where, args := translate(q)
	stmt := `SELECT document FROM items`
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY id"
	return b.query(ctx, stmt, args...)
}

// query runs stmt on each range. Rows are read fully before the first
// yield so that callers may write to the store while iterating.
func (b *Backend) query(ctx context.Context, stmt string, args ...any) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		docs, err := b.documents(ctx, stmt, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, doc := range docs {
			rec, err := types.DecodeRecord([]byte(doc))
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (b *Backend) documents(ctx context.Context, stmt string, args ...any) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrClosed
	}
	rows, err := b.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()
	var docs []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	return docs, nil
}

// AllIDs returns every stored id in order.
func (b *Backend) AllIDs(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, types.ErrClosed
	}
	rows, err := b.db.QueryContext(ctx, selectIDs)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save writes record under id inside one transaction.
func (b *Backend) Save(ctx context.Context, id string, record types.Record, insert bool) error {
	if err := types.CheckSave(id, record); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	rec, doc, err := encode(id, record)
	if err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return types.ErrClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, selectExists, id).Scan(&count); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	switch {
	case insert && count > 0:
		return fmt.Errorf("save %q: %w", id, types.ErrDuplicateID)
	case !insert && count == 0:
		return fmt.Errorf("save %q: %w", id, types.ErrNotFound)
	case insert:
		_, err = tx.ExecContext(ctx, insertItem, id, rec.Type(), rec.Name(), doc)
	default:
		_, err = tx.ExecContext(ctx, updateItem, rec.Type(), rec.Name(), doc, id)
	}
	if err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save of %q: %w", id, err)
	}
	return nil
}

// Delete removes the record stored under id.
func (b *Backend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return types.ErrClosed
	}
	res, err := b.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %q: %w", id, types.ErrNotFound)
	}
	return nil
}

// Close releases the database handle. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// encode returns the canonical record with its _id set and its JSON text.
func encode(id string, record types.Record) (types.Record, string, error) {
	rec, err := types.Canonical(record)
	if err != nil {
		return nil, "", err
	}
	rec[types.IDKey] = id
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", types.ErrInvalidRecord, err)
	}
	return rec, string(data), nil
}
