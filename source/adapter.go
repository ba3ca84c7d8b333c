package source

import (
	"context"
	"fmt"

	"etldemo/internal/record"
)

// Adapter feeds the extract stage.
type Adapter interface {
	Fetch(ctx context.Context) ([]record.Record, error)
}

// Factory builds an Adapter (e.g., the static demo driver).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(name string, f Factory) {
	registry[name] = f
}

// NewAdapter returns a driver by name.
func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported driver %q", name)
}
