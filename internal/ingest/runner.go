// Package ingest pulls market chart series for every active asset and
// persists them at daily and hourly grain, guided by per-grain freshness
// policies so already-fresh assets cost no provider calls.
package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/domain"
	"coin-tracker/internal/freshness"
	"coin-tracker/internal/normalize"
	"coin-tracker/internal/observability"
	"coin-tracker/internal/storage"
)

// SeriesClient fetches historical chart data for one coin.
type SeriesClient interface {
	MarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*coingecko.MarketChart, error)
}

// AssetResult summarizes one asset's outcome within a run.
type AssetResult struct {
	DailyDays      int    `json:"daily_days,omitempty"`
	HourlyDays     int    `json:"hourly_days,omitempty"`
	DailyInserted  int    `json:"daily_inserted"`
	HourlyInserted int    `json:"hourly_inserted"`
	DailySkipped   bool   `json:"daily_skipped,omitempty"`
	HourlySkipped  bool   `json:"hourly_skipped,omitempty"`
	HourlyError    string `json:"hourly_error,omitempty"`
}

// Summary is the outcome of a full run across all active assets.
type Summary struct {
	AssetCount int                     `json:"asset_count"`
	Inserted   int                     `json:"inserted"`
	PerAsset   map[string]*AssetResult `json:"per_asset"`
	Errors     map[string]string       `json:"errors,omitempty"`
}

// Status reports success only when no asset errored at either grain.
func (s *Summary) Status() string {
	if len(s.Errors) > 0 {
		return domain.JobStatusPartialSuccess
	}
	for _, r := range s.PerAsset {
		if r.HourlyError != "" {
			return domain.JobStatusPartialSuccess
		}
	}
	return domain.JobStatusSuccess
}

// Runner executes the price import job.
type Runner struct {
	client       SeriesClient
	assets       storage.AssetStore
	prices       storage.PricePointStore
	jobRuns      storage.JobRunStore
	dailyPolicy  freshness.Policy
	hourlyPolicy freshness.Policy
	vsCurrency   string
	enableHourly bool
	now          func() time.Time
	logger       *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Client       SeriesClient
	AssetStore   storage.AssetStore
	PriceStore   storage.PricePointStore
	JobRunStore  storage.JobRunStore // optional
	DailyPolicy  freshness.Policy    // zero value filled with defaults
	HourlyPolicy freshness.Policy
	VSCurrency   string // default "usd"
	EnableHourly bool
	Now          func() time.Time // default time.Now
	Logger       *log.Logger
}

// NewRunner creates a price import runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.AssetStore == nil {
		return nil, errors.New("asset store is required")
	}
	if opts.PriceStore == nil {
		return nil, errors.New("price store is required")
	}

	dailyPolicy := opts.DailyPolicy
	if dailyPolicy.MaxLookbackDays == 0 {
		dailyPolicy = freshness.Policy{MinAge: 20 * time.Hour, MaxLookbackDays: 365}
	}
	hourlyPolicy := opts.HourlyPolicy
	if hourlyPolicy.MaxLookbackDays == 0 {
		hourlyPolicy = freshness.Policy{MinAge: time.Hour, MaxLookbackDays: 90}
	}

	vsCurrency := opts.VSCurrency
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		client:       opts.Client,
		assets:       opts.AssetStore,
		prices:       opts.PriceStore,
		jobRuns:      opts.JobRunStore,
		dailyPolicy:  dailyPolicy,
		hourlyPolicy: hourlyPolicy,
		vsCurrency:   vsCurrency,
		enableHourly: opts.EnableHourly,
		now:          now,
		logger:       logger,
	}, nil
}

// Run imports series for every active asset. A daily failure marks the
// asset errored and skips its hourly pull; an hourly failure is recorded
// on the asset but does not undo its daily progress. Other assets are
// unaffected either way.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	now := r.now().UTC()

	assets, err := r.assets.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		AssetCount: len(assets),
		PerAsset:   make(map[string]*AssetResult, len(assets)),
		Errors:     make(map[string]string),
	}

	for _, asset := range assets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result := &AssetResult{}
		summary.PerAsset[asset.CoinGeckoID] = result

		if err := r.importGrain(ctx, asset, domain.GrainDaily, now, result); err != nil {
			summary.Errors[asset.CoinGeckoID] = err.Error()
			observability.RecordAssetIngestError(string(domain.GrainDaily))
			r.logger.Printf("daily import failed for %s: %v", asset.CoinGeckoID, err)
			continue
		}

		if r.enableHourly {
			if err := r.importGrain(ctx, asset, domain.GrainHourly, now, result); err != nil {
				result.HourlyError = err.Error()
				observability.RecordAssetIngestError(string(domain.GrainHourly))
				r.logger.Printf("hourly import failed for %s: %v", asset.CoinGeckoID, err)
			}
		} else {
			result.HourlySkipped = true
		}

		summary.Inserted += result.DailyInserted + result.HourlyInserted
	}

	status := summary.Status()
	observability.RecordJobRun(domain.JobPriceImport, status, time.Since(start).Seconds())

	if r.jobRuns != nil {
		run := &domain.JobRun{Name: domain.JobPriceImport, Status: status, Details: summary}
		if err := r.jobRuns.Record(ctx, run); err != nil {
			r.logger.Printf("record job run: %v", err)
		}
	}

	r.logger.Printf("price import finished: %d assets, %d rows inserted, status %s",
		summary.AssetCount, summary.Inserted, status)
	return summary, nil
}

// importGrain pulls and persists one grain's series for one asset.
func (r *Runner) importGrain(ctx context.Context, asset *domain.Asset, grain domain.Grain, now time.Time, result *AssetResult) error {
	policy := r.dailyPolicy
	lastObserved := asset.LastDailyObservedAt
	if grain == domain.GrainHourly {
		policy = r.hourlyPolicy
		lastObserved = asset.LastHourlyObservedAt
	}

	if !policy.ShouldRun(lastObserved, now) {
		if grain == domain.GrainDaily {
			result.DailySkipped = true
		} else {
			result.HourlySkipped = true
		}
		return nil
	}

	days := policy.DaysToPull(lastObserved, now)
	if grain == domain.GrainDaily {
		result.DailyDays = days
	} else {
		result.HourlyDays = days
	}
	chart, err := r.client.MarketChart(ctx, asset.CoinGeckoID, r.vsCurrency, days)
	if err != nil {
		return err
	}

	points, warnings := normalize.Merge(chart, r.vsCurrency)
	for _, w := range warnings {
		r.logger.Printf("normalize %s %s: %s", asset.CoinGeckoID, grain, w)
	}
	if grain == domain.GrainDaily {
		points = normalize.CollapseDaily(points)
	}

	inserted, err := r.prices.CommitSeries(ctx, asset.ID, grain, points)
	if err != nil {
		return err
	}
	observability.RecordPricePointsInserted(string(grain), inserted)

	if grain == domain.GrainDaily {
		result.DailyInserted = inserted
	} else {
		result.HourlyInserted = inserted
	}
	return nil
}
