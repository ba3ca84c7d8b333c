// etldemo/sink/stdout/driver.go
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"etldemo/internal/record"
	"etldemo/sink"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

/* ────────── public config ────────── */
type Config struct {
	Format      string    // json (default) | yaml
	PrintHeader bool      // "[load 000001] n records" before each batch
	Out         io.Writer // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // guards seq and writes to cfg.Out
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	switch c.Format {
	case "":
		c.Format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("stdout-sink: unsupported format %q", c.Format)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(_ context.Context, rs []record.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.Out == nil {
		return &sink.Error{Sink: "stdout", Op: "push", Err: fmt.Errorf("not configured")}
	}
	if d.cfg.PrintHeader {
		d.seq++
		if _, err := fmt.Fprintf(d.cfg.Out, "[load %06d] %d records\n", d.seq, len(rs)); err != nil {
			return &sink.Error{Sink: "stdout", Op: "push", Err: err}
		}
	}

	var err error
	if d.cfg.Format == FormatYAML {
		enc := yaml.NewEncoder(d.cfg.Out)
		enc.SetIndent(2)
		if err = enc.Encode(rs); err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(d.cfg.Out)
		for _, r := range rs {
			if err = enc.Encode(r); err != nil {
				break
			}
		}
	}
	if err != nil {
		return &sink.Error{Sink: "stdout", Op: "push", Err: err}
	}
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
