package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"etldemo/internal/record"
	"etldemo/internal/telemetry"
)

func active(id int, name string, age int, city string) record.Record {
	return record.Record{ID: id, Name: name, Age: age, City: city, Status: record.StatusActive}
}

var wantTransformed = []record.Record{
	active(2, "Bob", 30, "London"),
	active(3, "Charlie", 28, "Paris"),
	active(5, "Eve", 35, "Berlin"),
}

type captureSink struct {
	mu     sync.Mutex
	pushed [][]record.Record
	err    error
	closed bool
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(_ context.Context, rs []record.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, rs)
	return c.err
}
func (c *captureSink) Close() error {
	c.closed = true
	return nil
}

type failingSource struct{}

func (failingSource) Fetch(context.Context) ([]record.Record, error) {
	return nil, errors.New("source offline")
}

func TestExtract_IsIdempotent(t *testing.T) {
	s := NewState()
	ctx := context.Background()

	first, err := s.Extract(ctx)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := s.Extract(ctx)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(first, record.RawSource()) || !reflect.DeepEqual(first, second) {
		t.Fatalf("extract not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestTransform_FiltersByAgeAndMarksActive(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	if _, err := s.Extract(ctx); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := s.Transform(ctx)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !reflect.DeepEqual(got, wantTransformed) {
		t.Fatalf("want %+v, got %+v", wantTransformed, got)
	}
	if snap := s.Snapshot(); snap.Extracted[1].Status != "" {
		t.Fatalf("transform mutated extracted records: %+v", snap.Extracted[1])
	}
}

func TestTransform_TwiceIsIdentical(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	_, _ = s.Extract(ctx)

	a, _ := s.Transform(ctx)
	b, _ := s.Transform(ctx)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("second transform differs:\n%+v\n%+v", a, b)
	}
}

func TestTransform_EmptyExtractedRejected(t *testing.T) {
	s := NewState()
	_, err := s.Transform(context.Background())
	if !errors.Is(err, ErrNoDataToTransform) {
		t.Fatalf("want ErrNoDataToTransform, got %v", err)
	}
	if len(s.Snapshot().Transformed) != 0 {
		t.Fatal("transformed changed on rejected transform")
	}
}

func TestTransform_RejectionKeepsPreviousResult(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	_, _ = s.Extract(ctx)
	_, _ = s.Transform(ctx)

	s.mu.Lock()
	s.extracted = []record.Record{}
	s.mu.Unlock()

	if _, err := s.Transform(ctx); !errors.Is(err, ErrNoDataToTransform) {
		t.Fatalf("want ErrNoDataToTransform, got %v", err)
	}
	if got := s.Snapshot().Transformed; !reflect.DeepEqual(got, wantTransformed) {
		t.Fatalf("transformed altered by rejected call: %+v", got)
	}
}

func TestLoad_EmptyTransformedRejected(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	_, _ = s.Extract(ctx)

	if _, err := s.Load(ctx); !errors.Is(err, ErrNoDataToLoad) {
		t.Fatalf("want ErrNoDataToLoad, got %v", err)
	}
	if len(s.Snapshot().Loaded) != 0 {
		t.Fatal("loaded changed on rejected load")
	}
}

func TestLoad_ZeroSurvivorsRejected(t *testing.T) {
	s := NewState()
	ctx := context.Background()

	s.mu.Lock()
	s.extracted = []record.Record{{ID: 9, Name: "Young", Age: 25, City: "Rome"}}
	s.mu.Unlock()

	got, err := s.Transform(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("want empty transform, got %+v, %v", got, err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoDataToLoad) {
		t.Fatalf("want ErrNoDataToLoad, got %v", err)
	}
}

func TestEndToEnd_ExtractTransformLoad(t *testing.T) {
	s := NewState()
	cs := &captureSink{}
	s.AddSink("capture", cs)
	ctx := context.Background()

	_, _ = s.Extract(ctx)
	_, _ = s.Transform(ctx)
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded, wantTransformed) {
		t.Fatalf("loaded = %+v", loaded)
	}
	if len(cs.pushed) != 1 || !reflect.DeepEqual(cs.pushed[0], wantTransformed) {
		t.Fatalf("sink did not receive the loaded snapshot: %+v", cs.pushed)
	}

	// the sink owns its copy
	cs.pushed[0][0].Name = "mutated"
	if s.Snapshot().Loaded[0].Name != "Bob" {
		t.Fatal("sink mutation leaked into pipeline state")
	}
}

func TestLoad_SinkErrorDoesNotFailLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	s := NewState()
	s.SetMetrics(m)
	s.AddSink("broken", &captureSink{err: errors.New("boom")})
	ctx := context.Background()

	_, _ = s.Extract(ctx)
	_, _ = s.Transform(ctx)
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load should succeed despite sink failure: %v", err)
	}
	if len(s.Snapshot().Loaded) != 3 {
		t.Fatal("loaded not replaced")
	}
	if got := testutil.ToFloat64(m.SinkErrors.WithLabelValues("broken")); got != 1 {
		t.Fatalf("want 1 sink error, got %v", got)
	}
	if got := testutil.ToFloat64(m.StageRuns.WithLabelValues(StageLoad, telemetry.OutcomeOK)); got != 1 {
		t.Fatalf("want 1 ok load, got %v", got)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	_, _ = s.Extract(ctx)
	_, _ = s.Transform(ctx)
	_, _ = s.Load(ctx)

	s.Reset(ctx)
	snap := s.Snapshot()
	if len(snap.Extracted)+len(snap.Transformed)+len(snap.Loaded) != 0 {
		t.Fatalf("reset left data behind: %+v", snap)
	}
	if snap.Extracted == nil || snap.Transformed == nil || snap.Loaded == nil {
		t.Fatal("snapshot slices must be non-nil")
	}
	if _, err := s.Transform(ctx); !errors.Is(err, ErrNoDataToTransform) {
		t.Fatalf("want ErrNoDataToTransform after reset, got %v", err)
	}
}

func TestExtract_SourceErrorLeavesStateUntouched(t *testing.T) {
	s := NewState()
	s.SetSource(failingSource{})
	if _, err := s.Extract(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
	if len(s.Snapshot().Extracted) != 0 {
		t.Fatal("extracted changed on failed extract")
	}
}

func TestState_ConcurrentStages(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_, _ = s.Extract(ctx)
			case 1:
				_, _ = s.Transform(ctx)
			case 2:
				_, _ = s.Load(ctx)
			default:
				s.Reset(ctx)
			}
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	for _, r := range snap.Loaded {
		if r.Status != record.StatusActive || r.Age <= record.MinAge {
			t.Fatalf("loaded holds an untransformed record: %+v", r)
		}
	}
}

func TestClose_ClosesSinks(t *testing.T) {
	s := NewState()
	cs := &captureSink{}
	s.AddSink("capture", cs)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !cs.closed {
		t.Fatal("sink not closed")
	}
}

func TestLoad_SinksSeeLoadsInWriteOrder(t *testing.T) {
	s := NewState()
	cs := &captureSink{}
	s.AddSink("capture", cs)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 32; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.mu.Lock()
			s.transformed = []record.Record{active(id, "Row", 30+id, "Oslo")}
			s.mu.Unlock()
			_, _ = s.Load(ctx)
		}(i)
	}
	wg.Wait()

	if len(cs.pushed) != 32 {
		t.Fatalf("want 32 pushes, got %d", len(cs.pushed))
	}
	last := cs.pushed[len(cs.pushed)-1]
	if got := s.Snapshot().Loaded; !reflect.DeepEqual(last, got) {
		t.Fatalf("last push %+v differs from loaded %+v", last, got)
	}
}
