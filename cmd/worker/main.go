package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/bootstrap"
	"backoffice/internal/shared/config"
	"backoffice/internal/shared/telemetry"
)

// drainer is the slice of cfdi.Service the loop needs.
type drainer interface {
	Drain(ctx context.Context, limit int) (int, error)
	Recover(ctx context.Context) (int, error)
}

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx, cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"err": err})
		os.Exit(1)
	}
	defer app.Close()

	telemetry.Info("worker.started", map[string]any{
		"queue":    app.Queue.Name(),
		"interval": cfg.WorkerDrainInterval.String(),
		"limit":    cfg.WorkerDrainLimit,
	})
	run(ctx, app.CFDIService, cfg.WorkerDrainInterval, cfg.WorkerDrainLimit)
	telemetry.Info("worker.stopped", nil)
}

// run re-queues pending jobs once, then drains on every tick until ctx ends.
func run(ctx context.Context, svc drainer, interval time.Duration, limit int) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if n, err := svc.Recover(ctx); err != nil {
		telemetry.Error("worker.recover_failed", map[string]any{"err": err})
	} else if n > 0 {
		telemetry.Info("worker.recovered", map[string]any{"requeued": n})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !tick(ctx, svc, limit) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick drains until a pass comes back short of limit. It reports false once
// ctx is done.
func tick(ctx context.Context, svc drainer, limit int) bool {
	for {
		processed, err := svc.Drain(ctx, limit)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return false
			}
			telemetry.Error("worker.drain_failed", map[string]any{"err": err})
			return true
		}
		if processed < limit {
			return ctx.Err() == nil
		}
	}
}
