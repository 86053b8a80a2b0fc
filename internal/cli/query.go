package cli

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// parseValue reads s as a JSON literal, falling back to the plain string.
// Numbers come back as int64 or float64.
func parseValue(s string) any {
	if !json.Valid([]byte(s)) {
		return s
	}
	rec, err := types.DecodeRecord([]byte(`{"v":` + s + `}`))
	if err != nil {
		return s
	}
	return rec["v"]
}

// splitAssignment splits "key=value".
func splitAssignment(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", userError("expected key=value, got %q", arg)
	}
	return key, value, nil
}

// parseAssignments turns key=value arguments into record fields.
func parseAssignments(args []string) (types.Record, error) {
	rec := types.Record{}
	for _, arg := range args {
		key, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		rec[key] = parseValue(value)
	}
	return rec, nil
}

// parseQuery turns search arguments into a query:
//
//	key=value    equals (JSON literal or string)
//	key=a|b|c    one of the listed values
//	key=lo..hi   inclusive numeric range
//	key=~regex   full match of a string value
func parseQuery(args []string) (types.Query, error) {
	q := types.Query{}
	for _, arg := range args {
		key, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		if _, dup := q[key]; dup {
			return nil, userError("key %q given twice", key)
		}
		cond, err := parseCondition(value)
		if err != nil {
			return nil, err
		}
		q[key] = cond
	}
	return q, nil
}

func parseCondition(value string) (types.Condition, error) {
	if expr, ok := strings.CutPrefix(value, "~"); ok {
		re, err := types.NewRegex(expr)
		if err != nil {
			return nil, userError("%w", err)
		}
		return re, nil
	}
	if a, b, ok := strings.Cut(value, ".."); ok {
		lo, errLo := strconv.ParseFloat(a, 64)
		hi, errHi := strconv.ParseFloat(b, 64)
		if errLo == nil && errHi == nil {
			if lo > hi {
				return nil, userError("empty range %s", value)
			}
			return types.Range{Min: lo, Max: hi}, nil
		}
	}
	if strings.Contains(value, "|") {
		parts := strings.Split(value, "|")
		values := make([]any, len(parts))
		for i, p := range parts {
			values[i] = parseValue(p)
		}
		return types.In{Values: values}, nil
	}
	return types.Equals{Value: parseValue(value)}, nil
}
