package schema

import (
	"errors"
	"fmt"
	"sync"
)

// Registry maps item type names to schemas. Registration is append-only
// and ends with Freeze; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	order   []string
	frozen  bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds s under typeName. It fails when the registry is frozen, the
// name is taken, or s declares a field that an existing schema declares with
// an incompatible rule. The registry stores its own copy of s.
func (r *Registry) Register(typeName string, s *Schema) error {
	if typeName == "" {
		return ErrEmptyName
	}
	if s == nil {
		return fmt.Errorf("register %s: nil schema", typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %s: %w", typeName, ErrRegistryFrozen)
	}
	if _, ok := r.schemas[typeName]; ok {
		return fmt.Errorf("register %s: %w", typeName, ErrTypeExists)
	}
	if conflicts := r.conflicts(typeName, s); len(conflicts) > 0 {
		errs := make([]error, len(conflicts))
		for i, c := range conflicts {
			errs[i] = c
		}
		return fmt.Errorf("register %s: %w", typeName, errors.Join(errs...))
	}
	stored := s.Clone(typeName)
	stored.sealed = true
	r.schemas[typeName] = stored
	r.order = append(r.order, typeName)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(typeName string, s *Schema) {
	if err := r.Register(typeName, s); err != nil {
		panic(err)
	}
}

// Resolve returns the schema registered under typeName. The schema is
// sealed; Clone it to derive a new type.
func (r *Registry) Resolve(typeName string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[typeName]
	if !ok {
		return nil, &UnknownTypeError{Type: typeName}
	}
	return s, nil
}

// CheckConflicts compares s, as it would be registered under typeName,
// against every registered schema. It needs no record instance.
func (r *Registry) CheckConflicts(typeName string, s *Schema) []*SchemaConflictError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflicts(typeName, s)
}

func (r *Registry) conflicts(typeName string, s *Schema) []*SchemaConflictError {
	var out []*SchemaConflictError
	for _, name := range r.order {
		existing := r.schemas[name]
		for _, f := range s.fields {
			have, ok := existing.Field(f.Name)
			if !ok || have.Enforce.Compatible(f.Enforce) {
				continue
			}
			out = append(out, &SchemaConflictError{
				Field:    f.Name,
				Existing: name,
				Incoming: typeName,
				Have:     have.Enforce,
				Want:     f.Enforce,
			})
		}
	}
	return out
}

// Types returns registered type names in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Freeze ends registration. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
