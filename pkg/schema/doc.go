// Package schema is the field-level validation engine of the registry.
//
// A Field declares one attribute of an item: its name, the Rule its value
// must satisfy, whether it may be absent, and a default. A Schema is a named,
// ordered set of Fields describing one item type; schemas compose by merging
// parent fields. A Registry maps type names to schemas and refuses any schema
// that would declare an already-known field name with an incompatible rule,
// since records in mixed backends are validated only by name-matched fields.
//
// # Usage
//
//	reg := schema.NewBuiltinRegistry()
//	valve, _ := schema.Compose("Valve", []*schema.Schema{schema.OphydItem()},
//	    schema.Field{Name: "mps", Enforce: schema.TypeOf(schema.String), Optional: true},
//	)
//	if err := reg.Register("Valve", valve); err != nil {
//	    return err
//	}
//	out, err := valve.ValidateRecord(rec)
package schema
