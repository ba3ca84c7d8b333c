package sink

import (
	"context"
	"fmt"

	"etldemo/internal/record"
)

// Adapter is the common behaviour every sink exposes. A sink receives the
// full loaded snapshot on every successful load.
type Adapter interface {
	Configure(any) error                                // driver-specific config struct
	Push(ctx context.Context, rs []record.Record) error // consume one snapshot
	Close() error                                       // idempotent
}

// Error wraps a driver failure with the sink name and the operation.
type Error struct {
	Sink string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s sink %s: %v", e.Sink, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
