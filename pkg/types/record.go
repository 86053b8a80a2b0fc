package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Standard record keys. Every stored record carries all three.
const (
	IDKey   = "_id"
	NameKey = "name"
	TypeKey = "type"
)

// Record is one device description: a mapping of field name to value.
// Values are JSON-shaped (string, bool, int64, float64, []any,
// map[string]any, nil) once passed through Canonical.
type Record map[string]any

// ID returns the identity key, or "" when absent or not a string.
func (r Record) ID() string { return r.str(IDKey) }

// Name returns the record name, or "" when absent or not a string.
func (r Record) Name() string { return r.str(NameKey) }

// Type returns the item schema name the record claims.
func (r Record) Type() string { return r.str(TypeKey) }

func (r Record) str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Clone returns a deep copy. Nested maps and slices are copied; scalar
// values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep copies maps and slices of any nesting depth.
func CloneValue(v any) any {
	switch val := v.(type) {
	case Record:
		return map[string]any(val.Clone())
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = CloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = CloneValue(e)
		}
		return s
	case []string:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = e
		}
		return s
	default:
		return v
	}
}

// Canonical returns the JSON-canonical form of r. Integral numbers become
// int64, other numbers float64, objects map[string]any and arrays []any.
// All backends return canonical records so that a record read back from any
// store compares equal to the one that was written.
func Canonical(r Record) (Record, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return DecodeRecord(data)
}

// DecodeRecord parses one JSON object into a canonical Record.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	out := make(Record, len(raw))
	for k, v := range raw {
		c, err := canonicalValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidRecord, k, err)
		}
		out[k] = c
	}
	return out, nil
}

// canonicalValue replaces json.Number with int64 or float64. A number that
// fits neither is an error.
func canonicalValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", val.String())
		}
		return f, nil
	case map[string]any:
		for k, e := range val {
			c, err := canonicalValue(e)
			if err != nil {
				return nil, err
			}
			val[k] = c
		}
		return val, nil
	case []any:
		for i, e := range val {
			c, err := canonicalValue(e)
			if err != nil {
				return nil, err
			}
			val[i] = c
		}
		return val, nil
	default:
		return v, nil
	}
}
