// Package postgres mirrors the loaded snapshot into a PostgreSQL table.
//
// Every push replaces the table contents inside one transaction, so the
// table always equals the most recent load.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"etldemo/internal/record"
	"etldemo/sink"
)

const defaultQueryTimeout = 10 * time.Second

var (
	ErrMissingDSN   = errors.New("postgres-sink: dsn is required")
	ErrInvalidTable = errors.New("postgres-sink: invalid table name")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	DSN          string
	Table        string
	CreateTable  bool
	QueryTimeout time.Duration
}

type driver struct {
	cfg Config
	db  *sql.DB

	open func(driverName, dsn string) (*sql.DB, error)
}

func (d *driver) Configure(raw any) error {
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("postgres-sink: want Config, got %T", raw)
	}
	if cfg.DSN == "" {
		return ErrMissingDSN
	}
	if cfg.Table == "" {
		cfg.Table = "loaded_records"
	}
	if !identRe.MatchString(cfg.Table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Table)
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	d.cfg = cfg

	if d.open == nil {
		d.open = sql.Open
	}
	db, err := d.open("postgres", cfg.DSN)
	if err != nil {
		return &sink.Error{Sink: "postgres", Op: "connect", Err: err}
	}
	d.db = db

	if cfg.CreateTable {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, createTableSQL(cfg.Table)); err != nil {
			_ = db.Close()
			d.db = nil
			return &sink.Error{Sink: "postgres", Op: "create table", Err: err}
		}
	}
	return nil
}

func (d *driver) Push(ctx context.Context, rs []record.Record) error {
	if d.db == nil {
		return &sink.Error{Sink: "postgres", Op: "push", Err: errors.New("not configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &sink.Error{Sink: "postgres", Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", d.cfg.Table)); err != nil {
		return &sink.Error{Sink: "postgres", Op: "clear", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(d.cfg.Table))
	if err != nil {
		return &sink.Error{Sink: "postgres", Op: "prepare", Err: err}
	}
	defer stmt.Close()

	for _, r := range rs {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Age, r.City, r.Status); err != nil {
			return &sink.Error{Sink: "postgres", Op: "insert", Err: fmt.Errorf("record %d: %w", r.ID, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &sink.Error{Sink: "postgres", Op: "commit", Err: err}
	}
	return nil
}

func (d *driver) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	age    INTEGER NOT NULL,
	city   TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT ''
)`, table)
}

func insertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (id, name, age, city, status) VALUES ($1, $2, $3, $4, $5)", table)
}

func init() { sink.Register("postgres", func() sink.Adapter { return &driver{} }) }
