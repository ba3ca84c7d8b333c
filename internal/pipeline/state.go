package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"etldemo/internal/logging"
	"etldemo/internal/record"
	"etldemo/internal/telemetry"
	"etldemo/sink"
	"etldemo/source"
	"etldemo/source/static"
)

// Stage names, used for logs and metric labels.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
	StageReset     = "reset"
)

var (
	ErrNoDataToTransform = errors.New("no data to transform")
	ErrNoDataToLoad      = errors.New("no data to load")
)

type namedSink struct {
	name string
	sink.Adapter
}

// State owns the three stage outputs. Every stage replaces its output
// wholesale; nothing is merged. All methods are safe for concurrent use.
type State struct {
	source  source.Adapter
	sinks   []namedSink
	metrics *telemetry.Metrics
	log     *slog.Logger

	mu          sync.Mutex // guards the three slices below
	extracted   []record.Record
	transformed []record.Record
	loaded      []record.Record

	pushMu sync.Mutex // serialises sink fan-out; acquired after mu
}

// Snapshot is a copy of the pipeline contents at one instant.
type Snapshot struct {
	Extracted   []record.Record `json:"extracted"`
	Transformed []record.Record `json:"transformed"`
	Loaded      []record.Record `json:"loaded"`
}

// NewState returns empty state reading from the static source, with no sinks.
func NewState() *State {
	return &State{
		source:      static.New(),
		log:         logging.Component("pipeline"),
		extracted:   []record.Record{},
		transformed: []record.Record{},
		loaded:      []record.Record{},
	}
}

// SetSource replaces the extract source. Call before serving.
func (s *State) SetSource(src source.Adapter) { s.source = src }

// SetMetrics attaches collectors; nil disables them.
func (s *State) SetMetrics(m *telemetry.Metrics) { s.metrics = m }

// SetLogger overrides the component logger.
func (s *State) SetLogger(l *slog.Logger) { s.log = l }

// AddSink appends a load destination. Call before serving.
func (s *State) AddSink(name string, a sink.Adapter) { s.sinks = append(s.sinks, namedSink{name, a}) }

// Extract replaces the extracted records with a fresh read of the source.
func (s *State) Extract(ctx context.Context) ([]record.Record, error) {
	rs, err := s.source.Fetch(ctx)
	if err != nil {
		s.metrics.StageRun(StageExtract, telemetry.OutcomeError)
		return nil, fmt.Errorf("extract: %w", err)
	}

	s.mu.Lock()
	s.extracted = record.Clone(rs)
	out := record.Clone(s.extracted)
	s.mu.Unlock()

	s.metrics.StageRun(StageExtract, telemetry.OutcomeOK)
	s.metrics.SetRecords("extracted", len(out))
	s.log.Info("extracted", "records", len(out))
	return out, nil
}

// Transform keeps the extracted records older than record.MinAge and marks
// them active. It fails with ErrNoDataToTransform when nothing was extracted.
func (s *State) Transform(ctx context.Context) ([]record.Record, error) {
	s.mu.Lock()
	if len(s.extracted) == 0 {
		s.mu.Unlock()
		s.metrics.StageRun(StageTransform, telemetry.OutcomeRejected)
		s.log.Warn("transform rejected", "reason", ErrNoDataToTransform)
		return nil, ErrNoDataToTransform
	}
	s.transformed = transform(s.extracted)
	out := record.Clone(s.transformed)
	s.mu.Unlock()

	s.metrics.StageRun(StageTransform, telemetry.OutcomeOK)
	s.metrics.SetRecords("transformed", len(out))
	s.log.Info("transformed", "records", len(out))
	return out, nil
}

func transform(in []record.Record) []record.Record {
	out := make([]record.Record, 0, len(in))
	for _, r := range in {
		if r.Age <= record.MinAge {
			continue
		}
		r.Status = record.StatusActive // r is a copy
		out = append(out, r)
	}
	return out
}

// Load copies the transformed records into the loaded set and pushes the
// result to every sink. Sink failures are logged and counted only; the
// load itself has already happened. It fails with ErrNoDataToLoad when
// there is nothing transformed.
func (s *State) Load(ctx context.Context) ([]record.Record, error) {
	s.mu.Lock()
	if len(s.transformed) == 0 {
		s.mu.Unlock()
		s.metrics.StageRun(StageLoad, telemetry.OutcomeRejected)
		s.log.Warn("load rejected", "reason", ErrNoDataToLoad)
		return nil, ErrNoDataToLoad
	}
	s.loaded = record.Clone(s.transformed)
	out := record.Clone(s.loaded)
	// pushMu is taken before mu is released so sinks see loads in the
	// same order as they were written.
	s.pushMu.Lock()
	s.mu.Unlock()
	defer s.pushMu.Unlock()

	s.metrics.StageRun(StageLoad, telemetry.OutcomeOK)
	s.metrics.SetRecords("loaded", len(out))
	s.log.Info("loaded", "records", len(out), "sinks", len(s.sinks))

	s.fanOut(ctx, out)
	return out, nil
}

/*──────── sink fan-out ───────*/

// fanOut must be called with pushMu held.
func (s *State) fanOut(ctx context.Context, rs []record.Record) {
	for _, ns := range s.sinks {
		if err := ns.Push(ctx, record.Clone(rs)); err != nil {
			s.metrics.SinkError(ns.name)
			s.log.Error("sink push failed", "sink", ns.name, "err", err)
		}
	}
}

// Reset empties all three stages.
func (s *State) Reset(context.Context) {
	s.mu.Lock()
	s.extracted = []record.Record{}
	s.transformed = []record.Record{}
	s.loaded = []record.Record{}
	s.mu.Unlock()

	s.metrics.StageRun(StageReset, telemetry.OutcomeOK)
	for _, st := range []string{"extracted", "transformed", "loaded"} {
		s.metrics.SetRecords(st, 0)
	}
	s.log.Info("pipeline reset")
}

// Snapshot copies all three stages under one lock.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Extracted:   record.Clone(s.extracted),
		Transformed: record.Clone(s.transformed),
		Loaded:      record.Clone(s.loaded),
	}
}

// Close releases every sink.
func (s *State) Close() error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	var errs []error
	for _, ns := range s.sinks {
		if err := ns.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", ns.name, err))
		}
	}
	return errors.Join(errs...)
}
