// Package client is the registry front end: it validates records against
// the schema registry and persists them through a backend.
//
// # Usage
//
//	reg := schema.NewBuiltinRegistry()
//	c, err := client.New(backend, reg, client.WithLogger(log))
//	item, err := c.Create(ctx, schema.TypeOphydItem, types.Record{
//	    "name": "sam_x", "prefix": "TST:USR:MMS:01", "device_class": "ophyd.EpicsMotor",
//	})
//	for item, err := range c.Search(ctx, types.Query{"z": types.Range{Min: 300, Max: 301}}) {
//	    ...
//	}
package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/pkg/schema"
	"github.com/mesh-intelligence/happi/pkg/types"
)

// Timestamp keys stamped by the client.
const (
	CreationKey = "creation"
	LastEditKey = "last_edit"
)

// ErrNilBackend and ErrNilRegistry are returned by New.
var (
	ErrNilBackend  = errors.New("client needs a backend")
	ErrNilRegistry = errors.New("client needs a schema registry")
)

// Client validates and stores items. It is safe for concurrent use when the
// backend is.
type Client struct {
	backend    types.Backend
	registry   *schema.Registry
	log        *zap.SugaredLogger
	now        func() time.Time
	idFromName bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for the creation and last_edit stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDFromName selects how Create fills a missing _id: from the item name
// (the default) or with a new UUID v7.
func WithIDFromName(on bool) Option {
	return func(c *Client) { c.idFromName = on }
}

// New returns a client over backend. The registry is frozen: every type the
// client will see must be registered before New.
func New(backend types.Backend, registry *schema.Registry, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	c := &Client{
		backend:    backend,
		registry:   registry,
		log:        zap.NewNop().Sugar(),
		now:        time.Now,
		idFromName: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	registry.Freeze()
	return c, nil
}

// Backend returns the backend the client stores to.
func (c *Client) Backend() types.Backend { return c.backend }

// Registry returns the frozen schema registry.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Close closes the backend.
func (c *Client) Close() error { return c.backend.Close() }

func (c *Client) stamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

// Create validates fields as a new item of typeName and inserts it. A
// missing _id is derived from the name (or generated, see WithIDFromName).
// Nothing is stored when any field fails.
func (c *Client) Create(ctx context.Context, typeName string, fields types.Record) (*Item, error) {
	s, err := c.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	rec, err := types.Canonical(fields)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = types.Record{}
	}
	rec[types.TypeKey] = typeName
	now := c.stamp()
	if _, ok := rec[CreationKey]; !ok {
		rec[CreationKey] = now
	}
	rec[LastEditKey] = now

	valid, err := s.ValidateRecord(rec)
	if err != nil {
		return nil, err
	}
	if _, ok := valid[types.IDKey]; !ok {
		if c.idFromName {
			valid[types.IDKey] = valid.Name()
		} else {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("generating id: %w", err)
			}
			valid[types.IDKey] = id.String()
		}
	}
	id := valid.ID()
	if err := c.backend.Save(ctx, id, valid, true); err != nil {
		return nil, err
	}
	c.log.Infow("created item", "id", id, "type", typeName)
	return &Item{Type: typeName, Record: valid}, nil
}

// Find loads and validates the item stored under id.
func (c *Client) Find(ctx context.Context, id string) (*Item, error) {
	rec, err := c.backend.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.hydrate(rec)
}

// hydrate validates a stored record against the schema its type names.
func (c *Client) hydrate(rec types.Record) (*Item, error) {
	s, err := c.registry.Resolve(rec.Type())
	if err != nil {
		return nil, err
	}
	valid, err := s.ValidateRecord(rec)
	if err != nil {
		return nil, err
	}
	return &Item{Type: rec.Type(), Record: valid}, nil
}

// skippable reports whether a stored record can be passed over during a
// scan with only a warning.
func skippable(err error) bool {
	return errors.Is(err, schema.ErrUnknownType) || errors.Is(err, schema.ErrValidation)
}

// Search yields the items whose stored record matches every condition in q.
// Backends implementing types.Searcher narrow the scan; the query is always
// re-applied here. Records of an unregistered type or that fail validation
// are skipped with a warning. A condition on a key no record carries simply
// matches nothing.
func (c *Client) Search(ctx context.Context, q types.Query) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		source := c.backend.FindAll(ctx)
		if s, ok := c.backend.(types.Searcher); ok && len(q) > 0 {
			source = s.Search(ctx, q)
		}
		for rec, err := range source {
			if err != nil {
				yield(nil, err)
				return
			}
			if !q.Match(rec) {
				continue
			}
			item, err := c.hydrate(rec)
			if err != nil {
				if skippable(err) {
					c.log.Warnw("skipping invalid item", "id", rec.ID(), "type", rec.Type(), "error", err)
					continue
				}
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// AllItems returns every valid item.
func (c *Client) AllItems(ctx context.Context) ([]*Item, error) {
	var out []*Item
	for item, err := range c.Search(ctx, nil) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Save re-validates item and replaces the stored record. item.Record is
// updated to the stored form on success; on failure nothing is stored.
func (c *Client) Save(ctx context.Context, item *Item) error {
	s, err := c.registry.Resolve(item.Type)
	if err != nil {
		return err
	}
	id := item.ID()
	if id == "" {
		return fmt.Errorf("save: %w", types.ErrInvalidID)
	}
	rec, err := types.Canonical(item.Record)
	if err != nil {
		return err
	}
	rec[types.TypeKey] = item.Type
	rec[LastEditKey] = c.stamp()

	valid, err := s.ValidateRecord(rec)
	if err != nil {
		return err
	}
	if err := c.backend.Save(ctx, id, valid, false); err != nil {
		return err
	}
	item.Record = valid
	c.log.Infow("saved item", "id", id, "type", item.Type)
	return nil
}

// Remove deletes the stored record of item.
func (c *Client) Remove(ctx context.Context, item *Item) error {
	if err := c.backend.Delete(ctx, item.ID()); err != nil {
		return err
	}
	c.log.Infow("removed item", "id", item.ID())
	return nil
}

// Audit validates every stored record and returns the failures keyed by
// id. Backend errors abort the audit.
func (c *Client) Audit(ctx context.Context) (map[string]error, error) {
	bad := make(map[string]error)
	for rec, err := range c.backend.FindAll(ctx) {
		if err != nil {
			return nil, err
		}
		if _, err := c.hydrate(rec); err != nil {
			bad[rec.ID()] = err
		}
	}
	return bad, nil
}
