package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"etldemo/internal/httpapi"
	"etldemo/internal/pipeline"
	"etldemo/internal/telemetry"
	"etldemo/internal/transport"
)

type Engine struct {
	api       *httpapi.Server
	transport *transport.Server
	metrics   *telemetry.Server
	state     *pipeline.State

	shutdownTimeout time.Duration
	log             *slog.Logger
}

// Run serves the API, gRPC health and metrics until ctx is cancelled, then
// shuts them down and closes the pipeline sinks.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(e.api.Serve)
	g.Go(e.transport.Serve)
	g.Go(e.metrics.Serve)

	g.Go(func() error {
		<-gctx.Done()
		e.log.Info("shutting down")
		e.transport.SetServing(false)

		sctx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
		defer cancel()
		err := errors.Join(
			e.api.Shutdown(sctx),
			e.metrics.Shutdown(sctx),
		)
		e.transport.Stop()
		return errors.Join(err, e.state.Close())
	})

	e.transport.SetServing(true)
	e.log.Info("serving",
		"http", e.api.Addr(),
		"grpc_port", e.transport.Port(),
		"metrics", e.metrics.Addr(),
	)
	return g.Wait()
}
