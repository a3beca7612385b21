// Command ingest runs the price import job once and exits. Intended for
// cron-style invocation and backfills; the scheduler binary runs the same
// job on an interval.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/config"
	"coin-tracker/internal/freshness"
	"coin-tracker/internal/ingest"
	"coin-tracker/internal/storage/migrations"
	pgstore "coin-tracker/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Postgres error: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgres(ctx, pool); err != nil {
		logger.Fatalf("Migration error: %v", err)
	}

	client := coingecko.NewClient(cfg.CoinGeckoAPIKey)

	runner, err := ingest.NewRunner(ingest.RunnerOptions{
		Client:       client,
		AssetStore:   pgstore.NewAssetStore(pool),
		PriceStore:   pgstore.NewPricePointStore(pool),
		JobRunStore:  pgstore.NewJobRunStore(pool),
		DailyPolicy:  freshness.Policy{MinAge: cfg.DailyMinAge, MaxLookbackDays: cfg.DailyLookbackDays},
		HourlyPolicy: freshness.Policy{MinAge: cfg.HourlyMinAge, MaxLookbackDays: cfg.HourlyLookbackDays},
		VSCurrency:   cfg.VSCurrency,
		EnableHourly: cfg.EnableHourly,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Runner error: %v", err)
	}

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("Run error: %v", err)
	}

	logger.Printf("Done in %v: %d assets, %d rows inserted, %d errored, status %s",
		time.Since(start).Round(time.Millisecond),
		summary.AssetCount, summary.Inserted, len(summary.Errors), summary.Status())
}
