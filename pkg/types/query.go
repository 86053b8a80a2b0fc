package types

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
)

// Condition is one filter term applied to the value of a single field.
// present reports whether the record carries the field at all; a condition
// never matches an absent field.
type Condition interface {
	Match(value any, present bool) bool
}

// Query is a conjunction of conditions keyed by field name.
type Query map[string]Condition

// Match reports whether r satisfies every condition in q. An empty query
// matches everything.
func (q Query) Match(r Record) bool {
	for key, cond := range q {
		v, ok := r[key]
		if !cond.Match(v, ok) {
			return false
		}
	}
	return true
}

// Keys returns the field names in q in sorted order.
func (q Query) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equals matches a field equal to Value. Numbers compare by value, so
// int64(300) equals float64(300).
type Equals struct {
	Value any
}

func (c Equals) Match(v any, present bool) bool {
	return present && ValuesEqual(v, c.Value)
}

// In matches a field equal to any member of Values.
type In struct {
	Values []any
}

func (c In) Match(v any, present bool) bool {
	if !present {
		return false
	}
	for _, want := range c.Values {
		if ValuesEqual(v, want) {
			return true
		}
	}
	return false
}

// Range matches a numeric field with Min <= value <= Max.
type Range struct {
	Min float64
	Max float64
}

func (c Range) Match(v any, present bool) bool {
	if !present {
		return false
	}
	f, ok := ToFloat(v)
	return ok && f >= c.Min && f <= c.Max
}

// Regex matches a string field whose whole value matches the expression.
type Regex struct {
	expr string
	re   *regexp.Regexp
}

// NewRegex compiles expr anchored at both ends.
func NewRegex(expr string) (Regex, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return Regex{}, fmt.Errorf("compile %q: %w", expr, err)
	}
	return Regex{expr: expr, re: re}, nil
}

// Expr returns the anchored expression, usable by backends that evaluate
// regular expressions server side.
func (c Regex) Expr() string {
	if c.re == nil {
		return ""
	}
	return c.re.String()
}

func (c Regex) Match(v any, present bool) bool {
	s, ok := v.(string)
	return present && ok && c.re != nil && c.re.MatchString(s)
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IsIntegral reports whether v is a Go integer or a finite float with no
// fractional part.
func IsIntegral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		f := float64(n)
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	case float64:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	default:
		return false
	}
}

// ValuesEqual compares two record values. Numbers compare numerically;
// everything else compares structurally.
func ValuesEqual(a, b any) bool {
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if okA || okB {
		return okA && okB && fa == fb
	}
	return reflect.DeepEqual(CloneValue(a), CloneValue(b))
}
