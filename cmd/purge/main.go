package main

// Purge expired runs once, or on an interval:
//   go run ./cmd/purge
//   go run ./cmd/purge -interval 6h

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tender-backend/internal/bootstrap"
	"tender-backend/internal/config"
	"tender-backend/internal/shared/telemetry"
)

func main() {
	interval := flag.Duration("interval", 0, "run on this interval instead of once")
	days := flag.Int("days", 0, "retention window override in days")
	flag.Parse()

	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *interval <= 0 {
		if err := purgeOnce(ctx, app, *days); err != nil {
			log.Fatalf("purge error: %v", err)
		}
		return
	}

	log.Printf("purge loop started interval=%s", *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if err := purgeOnce(ctx, app, *days); err != nil {
			telemetry.Error("purge.failed", map[string]any{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			log.Printf("purge loop stopping")
			return
		case <-ticker.C:
		}
	}
}

func purgeOnce(ctx context.Context, app *bootstrap.App, days int) error {
	purged, err := app.RunsService.PurgeOlderThan(ctx, days)
	if err != nil {
		return err
	}
	log.Printf("purged %d expired runs", purged)
	return nil
}
