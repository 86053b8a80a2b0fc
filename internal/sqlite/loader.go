package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// LoadAll inserts records in one transaction keyed by their _id. Either
// every record is stored or none is: a duplicate id, in the batch or in the
// table, fails the whole load.
func (b *Backend) LoadAll(ctx context.Context, records []types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return types.ErrClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertItem)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	exists, err := tx.PrepareContext(ctx, selectExists)
	if err != nil {
		return fmt.Errorf("preparing lookup: %w", err)
	}
	defer exists.Close()

	for i, record := range records {
		id := record.ID()
		if err := types.CheckSave(id, record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		rec, doc, err := encode(id, record)
		if err != nil {
			return fmt.Errorf("record %d (%q): %w", i, id, err)
		}
		var count int
		if err := exists.QueryRowContext(ctx, id).Scan(&count); err != nil {
			return fmt.Errorf("record %d (%q): %w", i, id, err)
		}
		if count > 0 {
			return fmt.Errorf("record %d: save %q: %w", i, id, types.ErrDuplicateID)
		}
		if _, err := stmt.ExecContext(ctx, id, rec.Type(), rec.Name(), doc); err != nil {
			return fmt.Errorf("record %d (%q): %w", i, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	b.log.Infow("loaded records", "path", b.path, "count", len(records))
	return nil
}
