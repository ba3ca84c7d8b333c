package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"etldemo/internal/config"
	"etldemo/internal/engine"
	"etldemo/internal/logging"
)

func main() {
	path := flag.String("config", "etldemo.yml", "service config (optional; env ETLDEMO_* overrides)")
	flag.Parse()

	logging.InitFromEnv()

	cfg, err := config.Load(*path)
	if err != nil {
		logging.L().Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		logging.L().Error("bootstrap", "err", err)
		os.Exit(1)
	}

	if err := e.Run(ctx); err != nil {
		logging.L().Error("engine", "err", err)
		os.Exit(1)
	}
}
