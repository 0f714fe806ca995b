package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"biolens-backend/internal/bootstrap"
	"biolens-backend/internal/shared/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if app.DB != nil {
		defer app.DB.Close()
	}

	app.Worker.Run(ctx)
}
