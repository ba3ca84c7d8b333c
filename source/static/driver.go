// Package static serves the fixed demo dataset as the extract source.
package static

import (
	"context"

	"etldemo/internal/record"
	"etldemo/source"
)

const Name = "static"

type driver struct{}

func (driver) Fetch(context.Context) ([]record.Record, error) {
	return record.RawSource(), nil
}

// New returns the static driver without going through the registry.
func New() source.Adapter { return driver{} }

func init() { source.Register(Name, New) }
