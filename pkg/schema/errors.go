package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	// ErrEnforcement is wrapped by every EnforcementError.
	ErrEnforcement = errors.New("field enforcement failed")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("record validation failed")
	// ErrSchemaConflict is wrapped by every SchemaConflictError.
	ErrSchemaConflict = errors.New("schema conflict")
	// ErrDuplicateField is wrapped by every DuplicateFieldError.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrUnknownType is wrapped by every UnknownTypeError.
	ErrUnknownType = errors.New("unknown item type")

	ErrTypeExists     = errors.New("item type already registered")
	ErrRegistryFrozen = errors.New("schema registry is frozen")
	ErrSchemaSealed   = errors.New("registered schema is sealed")
	ErrEmptyName      = errors.New("name must not be empty")
)

// EnforcementError reports one field whose value fails its rule.
type EnforcementError struct {
	Field  string
	Value  any
	Reason string
}

func (e *EnforcementError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *EnforcementError) Unwrap() error { return ErrEnforcement }

// ValidationError aggregates every EnforcementError found in one record.
type ValidationError struct {
	Type   string
	ID     string
	Errors []*EnforcementError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q: %d invalid field(s)", e.Type, e.ID, len(e.Errors))
	for _, fe := range e.Errors {
		b.WriteString("; ")
		b.WriteString(fe.Error())
	}
	return b.String()
}

// Unwrap exposes ErrValidation and each field error.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors)+1)
	errs = append(errs, ErrValidation)
	for _, fe := range e.Errors {
		errs = append(errs, fe)
	}
	return errs
}

// Fields returns the names of the failing fields in declaration order.
func (e *ValidationError) Fields() []string {
	names := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		names[i] = fe.Field
	}
	return names
}

// SchemaConflictError reports two schemas declaring the same field with
// incompatible rules.
type SchemaConflictError struct {
	Field    string
	Existing string // type name already holding the field
	Incoming string // type name being registered or composed
	Have     Rule
	Want     Rule
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("field %q: %s declares %s, %s declares %s",
		e.Field, e.Existing, e.Have, e.Incoming, e.Want)
}

func (e *SchemaConflictError) Unwrap() error { return ErrSchemaConflict }

// DuplicateFieldError reports a field name declared twice in one schema.
type DuplicateFieldError struct {
	Schema string
	Field  string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("schema %s: field %q declared twice", e.Schema, e.Field)
}

func (e *DuplicateFieldError) Unwrap() error { return ErrDuplicateField }

// UnknownTypeError reports a type name with no registered schema.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("item type %q is not registered", e.Type)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }
