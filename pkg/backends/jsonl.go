package backends

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// ExportJSONL writes every record of src to path, one JSON object per line,
// replacing the file atomically and keeping the mode of an existing file. It returns the number of records written.
func ExportJSONL(ctx context.Context, src types.Reader, path string) (int, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".happi-*.jsonl.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (int, error) {
		tmp.Close()
		os.Remove(tmpName)
		return 0, err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(fmt.Errorf("setting temp file mode: %w", err))
	}

	w := bufio.NewWriter(tmp)
	n, err := WriteJSONL(ctx, src, w)
	if err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// WriteJSONL streams the records of src to w as JSON lines.
func WriteJSONL(ctx context.Context, src types.Reader, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for rec, err := range src.FindAll(ctx) {
		if err != nil {
			return n, fmt.Errorf("reading source: %w", err)
		}
		if err := enc.Encode(rec); err != nil {
			return n, fmt.Errorf("writing %s: %w", rec.ID(), err)
		}
		n++
	}
	return n, nil
}

// ReadJSONL parses JSON lines from r. Blank lines, lines that are not a JSON
// object and records without an _id are skipped; the count of skipped lines
// is returned alongside the records.
func ReadJSONL(r io.Reader) ([]types.Record, int, error) {
	var (
		records []types.Record
		skipped int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := types.DecodeRecord(line)
		if err != nil || rec.ID() == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scanning: %w", err)
	}
	return records, skipped, nil
}

// ImportJSONL inserts the records of a JSON lines file into dst. Backends
// implementing BulkLoader load them in one transaction; the others receive
// one insert per record and stop at the first failure.
func ImportJSONL(ctx context.Context, dst types.Backend, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, _, err := ReadJSONL(f)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if bl, ok := dst.(BulkLoader); ok {
		if err := bl.LoadAll(ctx, records); err != nil {
			return 0, err
		}
		return len(records), nil
	}
	for i, rec := range records {
		if err := dst.Save(ctx, rec.ID(), rec, true); err != nil {
			return i, fmt.Errorf("importing %s: %w", rec.ID(), err)
		}
	}
	return len(records), nil
}
