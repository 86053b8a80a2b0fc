package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/mesh-intelligence/happi/pkg/client"
	"github.com/mesh-intelligence/happi/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

// printItems writes one row per item, or a JSON array of records.
func printItems(w io.Writer, items []*client.Item, jsonMode bool) error {
	if jsonMode {
		recs := make([]types.Record, len(items))
		for i, item := range items {
			recs[i] = item.Record
		}
		return writeJSON(w, recs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID(), item.Name(), item.Type)
	}
	return tw.Flush()
}

// printRecord writes one field per line in key order, or the record as JSON.
func printRecord(w io.Writer, rec types.Record, jsonMode bool) error {
	if jsonMode {
		return writeJSON(w, rec)
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, formatValue(rec[k]))
	}
	return tw.Flush()
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
