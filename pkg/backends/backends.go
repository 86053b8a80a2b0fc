// Package backends opens the store a types.Config selects and moves records
// between stores.
//
// Example:
//
//	b, err := backends.Open(ctx, types.Config{
//	    Backend:    types.BackendJSON,
//	    Path:       "db.json",
//	    Initialize: true,
//	}, log)
//	defer b.Close()
package backends

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/internal/jsonstore"
	"github.com/mesh-intelligence/happi/internal/mongo"
	"github.com/mesh-intelligence/happi/internal/multi"
	"github.com/mesh-intelligence/happi/internal/questionnaire"
	"github.com/mesh-intelligence/happi/internal/sqlite"
	"github.com/mesh-intelligence/happi/pkg/types"
)

// Open validates cfg and returns the backend it names. A nil log discards
// output.
func Open(ctx context.Context, cfg types.Config, log *zap.SugaredLogger) (types.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return open(ctx, cfg, log.With("backend", cfg.Backend))
}

// backend drops the typed nil a failed constructor returns.
func backend[B types.Backend](b B, err error) (types.Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

func open(ctx context.Context, cfg types.Config, log *zap.SugaredLogger) (types.Backend, error) {
	switch cfg.Backend {
	case types.BackendJSON:
		return backend(jsonstore.Open(cfg.Path, cfg.Initialize, jsonstore.WithLogger(log)))
	case types.BackendSQLite:
		return backend(sqlite.Open(ctx, cfg.Path, cfg.Initialize, sqlite.WithLogger(log)))
	case types.BackendMongo:
		return backend(mongo.Connect(ctx, cfg.Mongo, mongo.WithLogger(log)))
	case types.BackendQuestionnaire:
		q := cfg.Questionnaire
		client, err := questionnaire.NewHTTPClient(q.URL, q.User, q.Password)
		if err != nil {
			return nil, err
		}
		return backend(questionnaire.New(ctx, client, q.Experiment, questionnaire.WithLogger(log)))
	case types.BackendMulti:
		var opened []types.Backend
		for i, src := range cfg.Sources {
			b, err := open(ctx, src, log.With("source", i))
			if err != nil {
				for _, o := range opened {
					o.Close()
				}
				return nil, fmt.Errorf("source %d: %w", i, err)
			}
			opened = append(opened, b)
		}
		return backend(multi.New(log, opened...))
	}
	return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
}

// BulkLoader is implemented by backends that can insert many records in a
// single transaction.
type BulkLoader interface {
	LoadAll(ctx context.Context, records []types.Record) error
}

// Copy inserts every record of src into dst and returns how many were
// written. Records whose id dst already holds are skipped unless overwrite
// is set, in which case they are replaced.
func Copy(ctx context.Context, dst types.Backend, src types.Reader, overwrite bool) (int, error) {
	n := 0
	for rec, err := range src.FindAll(ctx) {
		if err != nil {
			return n, fmt.Errorf("reading source: %w", err)
		}
		id := rec.ID()
		err := dst.Save(ctx, id, rec, true)
		if errors.Is(err, types.ErrDuplicateID) {
			if !overwrite {
				continue
			}
			err = dst.Save(ctx, id, rec, false)
		}
		if err != nil {
			return n, fmt.Errorf("copying %s: %w", id, err)
		}
		n++
	}
	return n, nil
}
