// Command scheduler runs both jobs on their configured intervals and
// serves Prometheus metrics. The group selector always fires before the
// first price import so a fresh database has assets to ingest.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/config"
	"coin-tracker/internal/freshness"
	"coin-tracker/internal/grouping"
	"coin-tracker/internal/ingest"
	"coin-tracker/internal/observability"
	"coin-tracker/internal/storage/migrations"
	pgstore "coin-tracker/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stdout, "[scheduler] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
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

	groupRunner, err := grouping.NewRunner(grouping.RunnerOptions{
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
		logger.Fatalf("Group runner error: %v", err)
	}

	importRunner, err := ingest.NewRunner(ingest.RunnerOptions{
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
		logger.Fatalf("Import runner error: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	runGroups := func() {
		if _, err := groupRunner.Run(ctx); err != nil {
			logger.Printf("Group selector error: %v", err)
		}
	}
	runImport := func() {
		if _, err := importRunner.Run(ctx); err != nil {
			logger.Printf("Price import error: %v", err)
		}
	}

	// Seed groups synchronously so the first import sees active assets.
	runGroups()
	runImport()

	scheduler := gocron.NewScheduler(time.UTC)
	// The seed runs above already covered the immediate execution.
	scheduler.WaitForScheduleAll()
	if _, err := scheduler.Every(cfg.GroupSelectorInterval).Do(runGroups); err != nil {
		logger.Fatalf("Schedule group selector: %v", err)
	}
	if _, err := scheduler.Every(cfg.PriceImportInterval).Do(runImport); err != nil {
		logger.Fatalf("Schedule price import: %v", err)
	}
	scheduler.StartAsync()

	logger.Printf("Scheduler started: group selector every %v, price import every %v",
		cfg.GroupSelectorInterval, cfg.PriceImportInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	cancel()
	scheduler.Stop()
	logger.Println("Shutdown complete")
}
