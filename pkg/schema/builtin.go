package schema

// Built-in item types.
const (
	TypeHappiItem = "HappiItem"
	TypeOphydItem = "OphydItem"
)

// NamePattern is the rule every item name satisfies: a lowercase letter
// followed by 2 to 78 lowercase letters, digits or underscores.
const NamePattern = `[a-z][a-z_0-9]{2,78}`

// happiFields are the fields of every item type.
var happiFields = []Field{
	{
		Name:    "name",
		Doc:     "Shorthand name for the item",
		Enforce: MustPattern(NamePattern),
	},
	{
		Name:     "device_class",
		Doc:      "Python class that loads the item",
		Enforce:  TypeOf(String),
		Optional: true,
	},
	{
		Name:    "args",
		Doc:     "Arguments to pass to the device class",
		Enforce: TypeOf(List),
		Default: []any{},
	},
	{
		Name:    "kwargs",
		Doc:     "Keyword arguments to pass to the device class",
		Enforce: TypeOf(Dict),
		Default: map[string]any{},
	},
	{
		Name:    "active",
		Doc:     "Whether the item is actively deployed",
		Enforce: TypeOf(Bool),
		Default: true,
	},
	{
		Name:     "documentation",
		Doc:      "Relevant documentation for the item",
		Enforce:  TypeOf(String),
		Optional: true,
	},
	{
		Name:     "creation",
		Doc:      "Creation time (RFC 3339)",
		Enforce:  TypeOf(String),
		Optional: true,
	},
	{
		Name:     "last_edit",
		Doc:      "Last edit time (RFC 3339)",
		Enforce:  TypeOf(String),
		Optional: true,
	},
}

// ophydFields are added to, or replace, the HappiItem fields for items
// loaded as ophyd devices.
var ophydFields = []Field{
	{
		Name:    "prefix",
		Doc:     "Prefix for all process variables of the device",
		Enforce: TypeOf(String),
	},
	{
		Name:    "device_class",
		Doc:     "Python class that loads the item",
		Enforce: TypeOf(String),
	},
	{
		Name:    "args",
		Doc:     "Arguments to pass to the device class",
		Enforce: TypeOf(List),
		Default: []any{"{{prefix}}"},
	},
	{
		Name:    "kwargs",
		Doc:     "Keyword arguments to pass to the device class",
		Enforce: TypeOf(Dict),
		Default: map[string]any{"name": "{{name}}"},
	},
}

// HappiItem returns the base item schema.
func HappiItem() *Schema {
	return MustNew(TypeHappiItem, happiFields...)
}

// OphydItem returns the schema of items instantiated as ophyd devices.
func OphydItem() *Schema {
	s, err := HappiItem().Extend(TypeOphydItem, ophydFields...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewBuiltinRegistry returns an unfrozen registry holding HappiItem and
// OphydItem. Callers may register further types before handing it to a
// client.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(TypeHappiItem, HappiItem())
	r.MustRegister(TypeOphydItem, OphydItem())
	return r
}
