package engine

import (
	"context"
	"fmt"

	"etldemo/internal/config"
	"etldemo/internal/httpapi"
	"etldemo/internal/logging"
	"etldemo/internal/pipeline"
	"etldemo/internal/telemetry"
	"etldemo/internal/transport"
)

func Bootstrap(_ context.Context, cfg config.Config) (e *Engine, err error) {
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	// 1. metrics + pipeline
	reg := telemetry.NewRegistry()
	state, err := pipeline.Compile(cfg.Pipeline, telemetry.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// listeners opened below are released if a later one fails
	var closers []func()
	defer func() {
		if err != nil {
			for _, c := range closers {
				c()
			}
			_ = state.Close()
		}
	}()

	// 2. HTTP API
	api, err := httpapi.Listen(httpapi.ServerOptions{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, httpapi.NewHandler(state).Routes())
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	closers = append(closers, func() { _ = api.Close() })

	// 3. transport server
	srv, err := transport.StartServer(cfg.GRPCPort)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	closers = append(closers, srv.Stop)

	// 4. metrics
	ms, err := telemetry.Listen(fmt.Sprintf(":%d", cfg.MetricsPort), reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	return &Engine{
		api:             api,
		transport:       srv,
		metrics:         ms,
		state:           state,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logging.Component("engine"),
	}, nil
}
