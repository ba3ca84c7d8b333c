package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etldemo"

// Outcome label values for StageRuns.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups the pipeline collectors. A nil *Metrics is a no-op so
// callers that do not care about telemetry can pass nil.
type Metrics struct {
	StageRuns  *prometheus.CounterVec
	Records    *prometheus.GaugeVec
	SinkErrors *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Pipeline stage invocations by outcome.",
		}, []string{"stage", "outcome"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_records",
			Help:      "Records currently held by each stage.",
		}, []string{"stage"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed pushes of the loaded snapshot, per sink.",
		}, []string{"sink"}),
	}
	reg.MustRegister(m.StageRuns, m.Records, m.SinkErrors)
	return m
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) StageRun(stage, outcome string) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) SetRecords(stage string, n int) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(stage).Set(float64(n))
}

func (m *Metrics) SinkError(name string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(name).Inc()
}

// Server exposes /metrics for a gatherer.
type Server struct {
	srv *http.Server
	lis net.Listener
}

func Listen(addr string, g prometheus.Gatherer) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		lis: lis,
	}, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

func (s *Server) Serve() error {
	if err := s.srv.Serve(s.lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
