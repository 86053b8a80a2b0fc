// Package multi layers several backends into one, ordered by priority.
//
// Reads consult the backends in order and the first one holding an id
// shadows the rest. Updates go to the backend that holds the id, inserts to
// the first backend that accepts writes.
package multi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// ErrNoBackends is returned by New without any backend.
var ErrNoBackends = errors.New("multi backend needs at least one backend")

// Backend implements types.Backend over an ordered list of backends.
type Backend struct {
	backends []types.Backend
	log      *zap.SugaredLogger
}

// New returns a composite of backends, highest priority first.
func New(log *zap.SugaredLogger, backends ...types.Backend) (*Backend, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backend{backends: backends, log: log}, nil
}

// Backends returns the layered backends in priority order.
func (m *Backend) Backends() []types.Backend {
	out := make([]types.Backend, len(m.backends))
	copy(out, m.backends)
	return out
}

// holder returns the index of the first backend holding id, or -1.
func (m *Backend) holder(ctx context.Context, id string) (int, types.Record, error) {
	for i, b := range m.backends {
		rec, err := b.Find(ctx, id)
		if err == nil {
			return i, rec, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return -1, nil, fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return -1, nil, nil
}

// Find returns the record from the first backend that holds id.
func (m *Backend) Find(ctx context.Context, id string) (types.Record, error) {
	i, rec, err := m.holder(ctx, id)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, fmt.Errorf("find %q: %w", id, types.ErrNotFound)
	}
	return rec, nil
}

// FindAll yields the union of all backends. An id already yielded by a
// higher priority backend is skipped.
func (m *Backend) FindAll(ctx context.Context) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		seen := make(map[string]bool)
		for i, b := range m.backends {
			for rec, err := range b.FindAll(ctx) {
				if err != nil {
					yield(nil, fmt.Errorf("backend %d: %w", i, err))
					return
				}
				if seen[rec.ID()] {
					continue
				}
				seen[rec.ID()] = true
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// AllIDs returns the sorted union of ids.
func (m *Backend) AllIDs(ctx context.Context) ([]string, error) {
	set := make(map[string]bool)
	for i, b := range m.backends {
		ids, err := b.AllIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		for _, id := range ids {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Save updates the backend holding id, or inserts into the first backend
// that accepts writes. An insert fails when any backend holds id.
func (m *Backend) Save(ctx context.Context, id string, record types.Record, insert bool) error {
	if err := types.CheckSave(id, record); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	i, _, err := m.holder(ctx, id)
	if err != nil {
		return err
	}
	if !insert {
		if i < 0 {
			return fmt.Errorf("save %q: %w", id, types.ErrNotFound)
		}
		return m.backends[i].Save(ctx, id, record, false)
	}
	if i >= 0 {
		return fmt.Errorf("save %q: %w", id, types.ErrDuplicateID)
	}
	for j, b := range m.backends {
		err := b.Save(ctx, id, record, true)
		if errors.Is(err, types.ErrUnsupported) {
			continue
		}
		if err == nil {
			m.log.Debugw("inserted record", "id", id, "backend", j)
		}
		return err
	}
	return fmt.Errorf("save %q: %w", id, types.ErrUnsupported)
}

// Delete removes id from every backend that holds it, so that no lower
// priority copy resurfaces. When a holder is read-only the delete fails with
// ErrUnsupported and the visible record is left unchanged.
func (m *Backend) Delete(ctx context.Context, id string) error {
	var holders []int
	for i, b := range m.backends {
		if _, err := b.Find(ctx, id); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			return fmt.Errorf("backend %d: %w", i, err)
		}
		if types.IsReadOnly(b) {
			return fmt.Errorf("delete %q: backend %d: %w", id, i, types.ErrUnsupported)
		}
		holders = append(holders, i)
	}
	if len(holders) == 0 {
		return fmt.Errorf("delete %q: %w", id, types.ErrNotFound)
	}
	// Lowest priority first: a holder refusing the delete leaves the copy
	// callers see in place.
	for _, i := range slices.Backward(holders) {
		if err := m.backends[i].Delete(ctx, id); err != nil {
			return fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every backend and joins their errors.
func (m *Backend) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
