package types

import (
	"context"
	"errors"
	"iter"
)

// Reader is the read capability shared by every backend.
type Reader interface {
	// Find returns the record stored under id.
	// Returns ErrNotFound if no record exists with that id.
	Find(ctx context.Context, id string) (Record, error)

	// FindAll returns a lazy, finite sequence over every stored record.
	// Each range over the sequence re-reads the store, so the sequence can be
	// consumed more than once. A read failure is yielded once as the error
	// and ends the sequence.
	FindAll(ctx context.Context) iter.Seq2[Record, error]

	// AllIDs returns the sorted set of stored ids.
	AllIDs(ctx context.Context) ([]string, error)
}

// Writer is the mutation capability. Read-only backends implement it by
// returning ErrUnsupported from every method.
type Writer interface {
	// Save persists record under id. With insert set the id must be new
	// (ErrDuplicateID otherwise); without it the id must already exist
	// (ErrNotFound otherwise). Readers never observe a partial write.
	Save(ctx context.Context, id string, record Record, insert bool) error

	// Delete removes the record stored under id.
	// Returns ErrNotFound if no record exists with that id.
	Delete(ctx context.Context, id string) error
}

// Searcher is implemented by backends that can narrow a query on the server
// side. Results may be a superset of the matches; callers re-apply the
// query.
type Searcher interface {
	Search(ctx context.Context, q Query) iter.Seq2[Record, error]
}

// ReadOnlyBackend is implemented by backends that can report up front that
// every Save and Delete fails with ErrUnsupported.
type ReadOnlyBackend interface {
	ReadOnly() bool
}

// IsReadOnly reports whether b declares itself read-only.
func IsReadOnly(b any) bool {
	ro, ok := b.(ReadOnlyBackend)
	return ok && ro.ReadOnly()
}

// Backend is a storage adapter with uniform CRUD over identity-keyed records.
type Backend interface {
	Reader
	Writer

	// Close releases connections or handles held by the backend.
	// Close is idempotent.
	Close() error
}

// Backend operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateID   = errors.New("record id already exists")
	ErrInvalidID     = errors.New("invalid record id")
	ErrInvalidRecord = errors.New("invalid record")
	ErrUnsupported   = errors.New("operation not supported by backend")
	ErrClosed        = errors.New("backend is closed")
)

// CheckSave validates the arguments every Save implementation shares: a
// non-empty id and a record whose _id, when present, agrees with it.
func CheckSave(id string, record Record) error {
	if id == "" {
		return ErrInvalidID
	}
	if record == nil {
		return ErrInvalidRecord
	}
	if rid, ok := record[IDKey]; ok && rid != id {
		return ErrInvalidRecord
	}
	return nil
}

// ErrorSeq returns a sequence that yields err once.
func ErrorSeq(err error) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		yield(nil, err)
	}
}
