package sqlite

import (
	"regexp"
	"strings"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// plainKey limits push-down to keys that are safe as a JSON path member.
var plainKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// translate builds a WHERE clause that selects a superset of the records
// matching q. Conditions it cannot express are left out.
func translate(q types.Query) (string, []any) {
	var clauses []string
	var args []any
	for _, key := range q.Keys() {
		if !plainKey.MatchString(key) {
			continue
		}
		path := "$." + key
		switch c := q[key].(type) {
		case types.Equals:
			v, ok := scalar(c.Value)
			if !ok {
				continue
			}
			clauses = append(clauses, "json_extract(document, ?) = ?")
			args = append(args, path, v)
		case types.In:
			vals := make([]any, 0, len(c.Values))
			for _, raw := range c.Values {
				v, ok := scalar(raw)
				if !ok {
					vals = nil
					break
				}
				vals = append(vals, v)
			}
			if len(vals) == 0 {
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
			clauses = append(clauses, "json_extract(document, ?) IN ("+marks+")")
			args = append(args, path)
			args = append(args, vals...)
		case types.Range:
			clauses = append(clauses, "json_extract(document, ?) BETWEEN ? AND ?")
			args = append(args, path, c.Min, c.Max)
		}
	}
	return strings.Join(clauses, " AND "), args
}

// scalar returns the SQL parameter for a string or numeric value. Booleans,
// lists and objects are not pushed down.
func scalar(v any) (any, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if f, ok := types.ToFloat(v); ok {
		return f, true
	}
	return nil, false
}
