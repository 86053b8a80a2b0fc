package schema

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Schema is a named, ordered set of fields describing one item type.
// A Schema is not safe for concurrent mutation. The copy a Registry holds
// is sealed: its fields can no longer change.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
	sealed bool
}

// New builds a schema from fields in order.
func New(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	s := &Schema{name: name, index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if err := s.RegisterField(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Compose builds a schema from the fields of parents, in order, followed by
// fields. A field redeclared by a later parent or by fields must be
// compatible with the earlier declaration and replaces it in place.
// Every incompatible redeclaration is reported.
func Compose(name string, parents []*Schema, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	s := &Schema{name: name, index: make(map[string]int)}
	owner := make(map[string]string)
	var errs []error
	merge := func(from string, f Field) error {
		if err := f.check(); err != nil {
			return err
		}
		i, ok := s.index[f.Name]
		if !ok {
			s.index[f.Name] = len(s.fields)
			s.fields = append(s.fields, f)
			owner[f.Name] = from
			return nil
		}
		if have := s.fields[i]; !have.Enforce.Compatible(f.Enforce) {
			errs = append(errs, &SchemaConflictError{
				Field:    f.Name,
				Existing: owner[f.Name],
				Incoming: from,
				Have:     have.Enforce,
				Want:     f.Enforce,
			})
			return nil
		}
		s.fields[i] = f
		owner[f.Name] = from
		return nil
	}
	for _, p := range parents {
		for _, f := range p.fields {
			if err := merge(p.name, f); err != nil {
				return nil, err
			}
		}
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			return nil, &DuplicateFieldError{Schema: name, Field: f.Name}
		}
		seen[f.Name] = true
		if err := merge(name, f); err != nil {
			return nil, err
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Extend builds a schema named name from s plus fields.
func (s *Schema) Extend(name string, fields ...Field) (*Schema, error) {
	return Compose(name, []*Schema{s}, fields...)
}

// Name returns the type name.
func (s *Schema) Name() string { return s.name }

// RegisterField appends f. It fails with a DuplicateFieldError when the name
// is already declared, an EnforcementError when the default violates the
// rule, or ErrSchemaSealed on a schema obtained from a Registry.
func (s *Schema) RegisterField(f Field) error {
	if s.sealed {
		return fmt.Errorf("register field %q on %s: %w", f.Name, s.name, ErrSchemaSealed)
	}
	if _, ok := s.index[f.Name]; ok {
		return &DuplicateFieldError{Schema: s.name, Field: f.Name}
	}
	if err := f.check(); err != nil {
		return err
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return nil
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the field declared under name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema declares name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Sealed reports whether s belongs to a Registry.
func (s *Schema) Sealed() bool { return s.sealed }

// Clone returns an unsealed copy of s under a new name.
func (s *Schema) Clone(name string) *Schema {
	c := &Schema{name: name, fields: s.Fields(), index: make(map[string]int, len(s.index))}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// ValidateRecord checks every declared field of r and returns a copy with
// defaults applied. Fields the schema does not declare are kept verbatim.
// All failures are collected into one ValidationError. r is not modified.
func (s *Schema) ValidateRecord(r types.Record) (types.Record, error) {
	out := r.Clone()
	if out == nil {
		out = types.Record{}
	}
	var failed []*EnforcementError
	for _, f := range s.fields {
		v, err := f.Validate(out[f.Name])
		if err != nil {
			var fe *EnforcementError
			if errors.As(err, &fe) {
				failed = append(failed, fe)
				continue
			}
			return nil, err
		}
		if v == nil {
			continue
		}
		out[f.Name] = v
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Type: s.name, ID: r.ID(), Errors: failed}
	}
	return out, nil
}
