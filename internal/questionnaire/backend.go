// Package questionnaire presents the devices an experiment declared in the
// proposal questionnaire as read-only registry records.
//
// The experiment name selects a proposal and a run ("run" plus the last two
// characters of the name). The proposal answers for that run are grouped by
// their pcdssetup-<kind>-<n>-<field> keys and translated into OphydItem
// records. Published answers do not change, so the translated records are
// fetched once per run and cached for the life of the Backend.
package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Backend errors.
var (
	ErrExperimentName    = errors.New("experiment name is too short to derive a run")
	ErrUnknownExperiment = errors.New("experiment not found in questionnaire")
)

// Backend implements types.Backend. Save and Delete always fail with
// types.ErrUnsupported.
type Backend struct {
	client     Client
	experiment string
	proposal   string
	run        string

	mu    sync.Mutex // serializes cache population
	cache *gocache.Cache
	log   *zap.SugaredLogger
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

// New resolves experiment to its proposal through client.
func New(ctx context.Context, client Client, experiment string, opts ...Option) (*Backend, error) {
	if len(experiment) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrExperimentName, experiment)
	}
	b := &Backend{
		client:     client,
		experiment: experiment,
		run:        RunFor(experiment),
		cache:      gocache.New(gocache.NoExpiration, 0),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(b)
	}
	ids, err := client.ExpNameToProposalIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving experiment %s: %w", experiment, err)
	}
	proposal, ok := ids[experiment]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExperiment, experiment)
	}
	b.proposal = proposal
	b.log.Infow("resolved experiment", "experiment", experiment, "proposal", proposal, "run", b.run)
	return b, nil
}

// RunFor returns the run identifier of an experiment name.
func RunFor(experiment string) string {
	return "run" + experiment[len(experiment)-2:]
}

// Proposal returns the proposal id the experiment resolved to.
func (b *Backend) Proposal() string { return b.proposal }

// Run returns the run identifier.
func (b *Backend) Run() string { return b.run }

// records returns the translated records of the run, fetching them on first
// use.
func (b *Backend) records(ctx context.Context) (map[string]types.Record, error) {
	if v, ok := b.cache.Get(b.run); ok {
		return v.(map[string]types.Record), nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.cache.Get(b.run); ok {
		return v.(map[string]types.Record), nil
	}

	recs, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}
	b.cache.Set(b.run, recs, gocache.NoExpiration)
	return recs, nil
}

func (b *Backend) fetch(ctx context.Context) (map[string]types.Record, error) {
	proposals, err := b.client.ProposalsForRun(ctx, b.run)
	if err != nil {
		return nil, fmt.Errorf("listing proposals for %s: %w", b.run, err)
	}
	beamline := proposals[b.proposal].Instrument

	details, err := b.client.ProposalDetailsForRun(ctx, b.run, b.proposal)
	if err != nil {
		return nil, fmt.Errorf("reading proposal %s for %s: %w", b.proposal, b.run, err)
	}

	recs := make(map[string]types.Record)
	for _, g := range groups(details) {
		rec, ok := translate(g, beamline)
		if !ok {
			b.log.Debugw("skipping incomplete questionnaire entry",
				"kind", kinds[g.kind].name, "index", g.n)
			continue
		}
		if _, dup := recs[rec.ID()]; dup {
			b.log.Warnw("skipping duplicate questionnaire entry",
				"name", rec.Name(), "kind", kinds[g.kind].name, "index", g.n)
			continue
		}
		recs[rec.ID()] = rec
	}
	b.log.Infow("loaded questionnaire items", "proposal", b.proposal, "run", b.run, "count", len(recs))
	return recs, nil
}

// Find returns the item named id.
func (b *Backend) Find(ctx context.Context, id string) (types.Record, error) {
	recs, err := b.records(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := recs[id]
	if !ok {
		return nil, fmt.Errorf("find %q: %w", id, types.ErrNotFound)
	}
	return rec.Clone(), nil
}

// FindAll yields every item in id order. Only the first use reaches the
// questionnaire.
func (b *Backend) FindAll(ctx context.Context) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		recs, err := b.records(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, id := range sortedIDs(recs) {
			if !yield(recs[id].Clone(), nil) {
				return
			}
		}
	}
}

// AllIDs returns every item id in order.
func (b *Backend) AllIDs(ctx context.Context) ([]string, error) {
	recs, err := b.records(ctx)
	if err != nil {
		return nil, err
	}
	return sortedIDs(recs), nil
}

// Save always fails: the questionnaire is read-only.
// ReadOnly reports true: the questionnaire is never written.
func (b *Backend) ReadOnly() bool { return true }

func (b *Backend) Save(context.Context, string, types.Record, bool) error {
	return fmt.Errorf("questionnaire save: %w", types.ErrUnsupported)
}

// Delete always fails: the questionnaire is read-only.
func (b *Backend) Delete(context.Context, string) error {
	return fmt.Errorf("questionnaire delete: %w", types.ErrUnsupported)
}

// Close drops the cached records.
func (b *Backend) Close() error {
	b.cache.Flush()
	return nil
}

func sortedIDs(recs map[string]types.Record) []string {
	ids := make([]string, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
