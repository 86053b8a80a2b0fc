package client

import "github.com/mesh-intelligence/happi/pkg/types"

// Item is one validated record together with its item type.
type Item struct {
	Type   string
	Record types.Record
}

// ID returns the identity key.
func (i *Item) ID() string { return i.Record.ID() }

// Name returns the item name.
func (i *Item) Name() string { return i.Record.Name() }

// Get returns the value stored under key.
func (i *Item) Get(key string) (any, bool) {
	v, ok := i.Record[key]
	return v, ok
}

// Set stores v under key. The change is checked on the next Client.Save.
func (i *Item) Set(key string, v any) {
	if i.Record == nil {
		i.Record = types.Record{}
	}
	i.Record[key] = v
}
