package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// ValueType names the structural type a TypeOf rule enforces.
type ValueType int

const (
	String ValueType = iota + 1
	Int
	Float
	Bool
	List
	Dict
)

func (t ValueType) String() string {
	switch t {
	case String:
		return "str"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Dict:
		return "dict"
	default:
		return "unknown"
	}
}

// ParseValueType maps a type name as written in catalogs ("str", "int",
// "float", "bool", "list", "dict") to a ValueType.
func ParseValueType(name string) (ValueType, bool) {
	switch strings.ToLower(name) {
	case "str", "string":
		return String, true
	case "int", "integer":
		return Int, true
	case "float", "number":
		return Float, true
	case "bool", "boolean":
		return Bool, true
	case "list", "array":
		return List, true
	case "dict", "object":
		return Dict, true
	default:
		return 0, false
	}
}

// check reports whether v has structural type t.
func (t ValueType) check(v any) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Int:
		return types.IsIntegral(v)
	case Float:
		_, ok := types.ToFloat(v)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case List:
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	case Dict:
		switch v.(type) {
		case map[string]any, types.Record:
			return true
		}
		return false
	default:
		return false
	}
}

// RuleKind distinguishes the ways a Rule can constrain a value.
type RuleKind int

const (
	KindAny RuleKind = iota
	KindType
	KindEnum
	KindPattern
	KindPredicate
)

func (k RuleKind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindType:
		return "type"
	case KindEnum:
		return "enum"
	case KindPattern:
		return "pattern"
	case KindPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// PredicateFunc returns nil when v is acceptable.
type PredicateFunc func(v any) error

// Rule is the enforcement constraint of a Field. The zero Rule accepts
// every value.
type Rule struct {
	kind    RuleKind
	typ     ValueType
	values  []any
	pattern *regexp.Regexp
	name    string
	pred    PredicateFunc
}

// Any returns the rule that enforces nothing.
func Any() Rule { return Rule{kind: KindAny} }

// TypeOf returns a rule requiring values of structural type t.
func TypeOf(t ValueType) Rule { return Rule{kind: KindType, typ: t} }

// OneOf returns a rule requiring values equal to one member of values.
func OneOf(values ...any) Rule {
	members := make([]any, len(values))
	for i, v := range values {
		members[i] = types.CloneValue(v)
	}
	return Rule{kind: KindEnum, values: members}
}

// Pattern returns a rule requiring strings that match expr in full.
func Pattern(expr string) (Rule, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return Rule{}, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return Rule{kind: KindPattern, pattern: re, name: expr}, nil
}

// MustPattern is like Pattern but panics on an invalid expression. It is
// meant for package-level catalogs.
func MustPattern(expr string) Rule {
	r, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// Predicate returns a rule that accepts v when fn(v) returns nil. The name
// identifies the predicate when schemas are compared; two predicate rules
// are compatible only when their names are equal.
func Predicate(name string, fn PredicateFunc) Rule {
	return Rule{kind: KindPredicate, name: name, pred: fn}
}

// Kind returns the rule kind.
func (r Rule) Kind() RuleKind { return r.kind }

// Check returns nil when v satisfies the rule, otherwise an error giving the
// reason. A panicking predicate is reported as a failure.
func (r Rule) Check(v any) (err error) {
	switch r.kind {
	case KindAny:
		return nil
	case KindType:
		if !r.typ.check(v) {
			return fmt.Errorf("expected %s, got %T", r.typ, v)
		}
		return nil
	case KindEnum:
		for _, want := range r.values {
			if types.ValuesEqual(v, want) {
				return nil
			}
		}
		return fmt.Errorf("%v is not one of %v", v, r.values)
	case KindPattern:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected str matching %q, got %T", r.name, v)
		}
		if !r.pattern.MatchString(s) {
			return fmt.Errorf("%q does not match %q", s, r.name)
		}
		return nil
	case KindPredicate:
		if r.pred == nil {
			return fmt.Errorf("predicate %q is not defined", r.name)
		}
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("predicate %q panicked: %v", r.name, p)
			}
		}()
		if perr := r.pred(v); perr != nil {
			return fmt.Errorf("predicate %q: %w", r.name, perr)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %d", r.kind)
	}
}

// Compatible reports whether two schemas may declare the same field name
// with rules r and o. The relation is symmetric:
//
//   - Any is compatible with every rule.
//   - Two type rules are compatible when the types are equal, or when one is
//     Int and the other Float (Int is a strict relaxation target of Float).
//   - An enum is compatible with a type rule when every member has that type,
//     with another enum when one member set contains the other, and with a
//     pattern when every member matches it.
//   - An empty enum accepts nothing, so it is compatible only with Any and
//     with another empty enum.
//   - A pattern is compatible with the String type and with an identical
//     pattern.
//   - A predicate is compatible only with a predicate of the same name.
func (r Rule) Compatible(o Rule) bool {
	if r.kind > o.kind {
		r, o = o, r
	}
	if r.kind == KindAny {
		return true
	}
	if r.emptyEnum() || o.emptyEnum() {
		return r.emptyEnum() && o.emptyEnum()
	}
	switch r.kind {
	case KindType:
		switch o.kind {
		case KindType:
			if r.typ == o.typ {
				return true
			}
			return (r.typ == Int && o.typ == Float) || (r.typ == Float && o.typ == Int)
		case KindEnum:
			for _, v := range o.values {
				if !r.typ.check(v) {
					return false
				}
			}
			return true
		case KindPattern:
			return r.typ == String
		default:
			return false
		}
	case KindEnum:
		switch o.kind {
		case KindEnum:
			return subset(r.values, o.values) || subset(o.values, r.values)
		case KindPattern:
			for _, v := range r.values {
				if o.Check(v) != nil {
					return false
				}
			}
			return true
		default:
			return false
		}
	case KindPattern:
		return o.kind == KindPattern && r.name == o.name
	case KindPredicate:
		return o.kind == KindPredicate && r.name == o.name
	default:
		return false
	}
}

// Equal reports whether r and o are the same rule: same kind and same
// parameters.
func (r Rule) Equal(o Rule) bool {
	if r.kind != o.kind {
		return false
	}
	switch r.kind {
	case KindType:
		return r.typ == o.typ
	case KindEnum:
		return subset(r.values, o.values) && subset(o.values, r.values)
	case KindPattern, KindPredicate:
		return r.name == o.name
	default:
		return true
	}
}

func (r Rule) String() string {
	switch r.kind {
	case KindAny:
		return "any"
	case KindType:
		return r.typ.String()
	case KindEnum:
		return fmt.Sprintf("one of %v", r.values)
	case KindPattern:
		return fmt.Sprintf("pattern %q", r.name)
	case KindPredicate:
		return fmt.Sprintf("predicate %q", r.name)
	default:
		return "unknown"
	}
}

func (r Rule) emptyEnum() bool {
	return r.kind == KindEnum && len(r.values) == 0
}

// subset reports whether every member of a is equal to some member of b.
func subset(a, b []any) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if types.ValuesEqual(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
