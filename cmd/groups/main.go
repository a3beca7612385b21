// Command groups runs the group selector job once and exits: it snapshots
// the market, rebuilds every curated group and refreshes active flags.
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
	"coin-tracker/internal/grouping"
	"coin-tracker/internal/storage/migrations"
	pgstore "coin-tracker/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stdout, "[groups] ", log.LstdFlags|log.Lshortfile)

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

	runner, err := grouping.NewRunner(grouping.RunnerOptions{
		Client:          client,
		AssetStore:      pgstore.NewAssetStore(pool),
		GroupStore:      pgstore.NewGroupStore(pool),
		MembershipStore: pgstore.NewMembershipStore(pool),
		JobRunStore:     pgstore.NewJobRunStore(pool),
		VSCurrency:      cfg.VSCurrency,
		SnapshotSize:    cfg.SnapshotSize,
		CategorySize:    cfg.CategorySize,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("Runner error: %v", err)
	}

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("Run error: %v", err)
	}

	logger.Printf("Done in %v: %d groups rebuilt, %d errored, status %s",
		time.Since(start).Round(time.Millisecond),
		len(summary.Groups), len(summary.Errors), summary.Status())
}
