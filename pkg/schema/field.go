package schema

import "github.com/mesh-intelligence/happi/pkg/types"

// Field declares one attribute of an item.
type Field struct {
	Name     string // Key in the record (required, non-empty).
	Doc      string // Human-readable description.
	Enforce  Rule   // Constraint on present values; the zero Rule accepts all.
	Optional bool   // Absent values are accepted.
	Default  any    // Supplied when the value is absent; nil for none.
}

// Validate checks value against the field. A nil value is absent: a declared
// default is returned in its place, an optional field without one yields nil,
// and a mandatory field without one fails. A present value is returned
// unchanged when it satisfies Enforce.
func (f Field) Validate(value any) (any, error) {
	if value == nil {
		if f.Default != nil {
			return f.CoerceDefault(), nil
		}
		if f.Optional {
			return nil, nil
		}
		return nil, &EnforcementError{Field: f.Name, Reason: "missing mandatory value"}
	}
	if err := f.Enforce.Check(value); err != nil {
		return nil, &EnforcementError{Field: f.Name, Value: value, Reason: err.Error()}
	}
	return value, nil
}

// CoerceDefault returns a deep copy of the default, or nil when none is
// declared. Callers may mutate the result.
func (f Field) CoerceDefault() any {
	return types.CloneValue(f.Default)
}

// check verifies the field declaration itself.
func (f Field) check() error {
	if f.Name == "" {
		return ErrEmptyName
	}
	if f.Default == nil {
		return nil
	}
	if err := f.Enforce.Check(f.Default); err != nil {
		return &EnforcementError{Field: f.Name, Value: f.Default, Reason: "default " + err.Error()}
	}
	return nil
}
