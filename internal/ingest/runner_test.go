package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage/memory"
)

// fakeSeriesClient serves canned charts keyed by coin id and records the
// days argument of every call.
type fakeSeriesClient struct {
	charts       map[string]*coingecko.MarketChart
	errors       map[string]error
	hourlyErrors map[string]error // fails only the second fetch for a coin
	calls        []string         // "coinID/days"
}

func (f *fakeSeriesClient) MarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*coingecko.MarketChart, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s/%d", coinID, days))
	if err, ok := f.errors[coinID]; ok {
		return nil, err
	}
	if err, ok := f.hourlyErrors[coinID]; ok && f.seenBefore(coinID) {
		return nil, err
	}
	chart, ok := f.charts[coinID]
	if !ok {
		return nil, errors.New("unknown coin")
	}
	return chart, nil
}

// seenBefore reports whether a coin was already fetched earlier in the run,
// which within one run means the daily pull succeeded and this is the
// hourly follow-up.
func (f *fakeSeriesClient) seenBefore(coinID string) bool {
	var n int
	for _, call := range f.calls {
		if strings.HasPrefix(call, coinID+"/") {
			n++
		}
	}
	return n > 1
}

func chartAt(times ...time.Time) *coingecko.MarketChart {
	chart := &coingecko.MarketChart{}
	for i, ts := range times {
		price := 100.0 + float64(i)
		cap := 1e9 + float64(i)
		vol := 1e6 + float64(i)
		ms := ts.UnixMilli()
		chart.Prices = append(chart.Prices, coingecko.ChartPoint{TimestampMs: ms, Value: &price})
		chart.MarketCaps = append(chart.MarketCaps, coingecko.ChartPoint{TimestampMs: ms, Value: &cap})
		chart.Volumes = append(chart.Volumes, coingecko.ChartPoint{TimestampMs: ms, Value: &vol})
	}
	return chart
}

func seedActiveAsset(t *testing.T, store *memory.Store, coinID string) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.UpsertByExternalID(ctx, &domain.Asset{CoinGeckoID: coinID, Symbol: coinID, Name: coinID})
	if err != nil {
		t.Fatalf("seed asset %s: %v", coinID, err)
	}
	groupID, err := store.UpsertByTag(ctx, &domain.Group{Tag: "SEED", Type: domain.GroupTypeRankBucket})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	members, err := store.ListMembers(ctx, groupID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	next := []*domain.GroupMember{{AssetID: id, Rank: len(members) + 1}}
	for i, m := range members {
		next = append(next, &domain.GroupMember{AssetID: m, Rank: i + 2})
	}
	if err := store.Rebuild(ctx, groupID, next, nil); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	if err := store.RefreshActiveFlags(ctx); err != nil {
		t.Fatalf("refresh flags: %v", err)
	}
	return id
}

func newTestRunner(t *testing.T, store *memory.Store, client SeriesClient, now time.Time) *Runner {
	t.Helper()
	runner, err := NewRunner(RunnerOptions{
		Client:       client,
		AssetStore:   store,
		PriceStore:   store,
		JobRunStore:  store,
		EnableHourly: true,
		Now:          func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner
}

func TestRunImportsBothGrainsAndRecordsSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := seedActiveAsset(t, store, "bitcoin")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{charts: map[string]*coingecko.MarketChart{
		"bitcoin": chartAt(now.Add(-48*time.Hour), now.Add(-24*time.Hour)),
	}}

	runner := newTestRunner(t, store, client, now)
	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Status() != domain.JobStatusSuccess {
		t.Fatalf("expected success, got %s", summary.Status())
	}
	result := summary.PerAsset["bitcoin"]
	if result == nil || result.DailyInserted != 2 || result.HourlyInserted != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	daily, err := store.ListSeries(ctx, id, domain.GrainDaily)
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(daily))
	}

	run := store.LastRun(domain.JobPriceImport)
	if run == nil || run.Status != domain.JobStatusSuccess {
		t.Fatalf("expected recorded success run, got %+v", run)
	}
}

func TestRunIsIdempotentAcrossOverlappingWindows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := seedActiveAsset(t, store, "bitcoin")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{charts: map[string]*coingecko.MarketChart{
		"bitcoin": chartAt(now.Add(-48*time.Hour), now.Add(-24*time.Hour)),
	}}

	runner := newTestRunner(t, store, client, now)
	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second run far enough in the future to pass the freshness gate,
	// re-fetching a window that overlaps the first.
	later := now.Add(30 * time.Hour)
	runner = newTestRunner(t, store, client, later)
	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result := summary.PerAsset["bitcoin"]; result.DailyInserted != 0 {
		t.Fatalf("expected overlapping daily points skipped, got %d inserted", result.DailyInserted)
	}
	daily, err := store.ListSeries(ctx, id, domain.GrainDaily)
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected 2 daily points after replay, got %d", len(daily))
	}
}

func TestRunSkipsFreshAssets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedActiveAsset(t, store, "bitcoin")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{charts: map[string]*coingecko.MarketChart{
		"bitcoin": chartAt(now.Add(-30 * time.Minute)),
	}}

	runner := newTestRunner(t, store, client, now)
	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := len(client.calls)

	// Ten minutes later both grains are still inside their minimum age.
	runner = newTestRunner(t, store, client, now.Add(10*time.Minute))
	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(client.calls) != firstCalls {
		t.Fatalf("expected no provider calls for fresh asset, got %d extra", len(client.calls)-firstCalls)
	}
	result := summary.PerAsset["bitcoin"]
	if !result.DailySkipped || !result.HourlySkipped {
		t.Fatalf("expected both grains skipped, got %+v", result)
	}
	if summary.Status() != domain.JobStatusSuccess {
		t.Fatalf("a skipped asset is not an error: %s", summary.Status())
	}
}

func TestRunIsolatesPerAssetFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedActiveAsset(t, store, "bitcoin")
	okID := seedActiveAsset(t, store, "ethereum")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{
		charts: map[string]*coingecko.MarketChart{
			"ethereum": chartAt(now.Add(-24 * time.Hour)),
		},
		errors: map[string]error{"bitcoin": errors.New("rate limited")},
	}

	runner := newTestRunner(t, store, client, now)
	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Status() != domain.JobStatusPartialSuccess {
		t.Fatalf("expected partial_success, got %s", summary.Status())
	}
	if _, ok := summary.Errors["bitcoin"]; !ok {
		t.Fatalf("expected bitcoin in errors, got %v", summary.Errors)
	}

	// The failing asset must not block the healthy one.
	daily, err := store.ListSeries(ctx, okID, domain.GrainDaily)
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("expected ethereum ingested despite bitcoin failure, got %d points", len(daily))
	}

	// A daily failure must also skip the asset's hourly pull.
	for _, call := range client.calls {
		if call != "bitcoin/365" && call != "ethereum/365" && call != "ethereum/90" {
			t.Fatalf("unexpected provider call %s", call)
		}
	}

	run := store.LastRun(domain.JobPriceImport)
	if run == nil || run.Status != domain.JobStatusPartialSuccess {
		t.Fatalf("expected recorded partial_success run, got %+v", run)
	}
}

func TestRunKeepsDailyWhenHourlyFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := seedActiveAsset(t, store, "bitcoin")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{
		charts: map[string]*coingecko.MarketChart{
			"bitcoin": chartAt(now.Add(-48*time.Hour), now.Add(-24*time.Hour)),
		},
		hourlyErrors: map[string]error{"bitcoin": errors.New("rate limited")},
	}

	runner := newTestRunner(t, store, client, now)
	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	result := summary.PerAsset["bitcoin"]
	if result.DailyInserted != 2 {
		t.Fatalf("expected daily commit to survive, got %+v", result)
	}
	if result.HourlyError == "" {
		t.Fatalf("expected hourly error recorded, got %+v", result)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("an hourly-only failure is not an asset failure: %v", summary.Errors)
	}
	if summary.Status() != domain.JobStatusPartialSuccess {
		t.Fatalf("expected partial_success, got %s", summary.Status())
	}

	daily, err := store.ListSeries(ctx, id, domain.GrainDaily)
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected 2 daily points despite hourly failure, got %d", len(daily))
	}

	run := store.LastRun(domain.JobPriceImport)
	if run == nil || run.Status != domain.JobStatusPartialSuccess {
		t.Fatalf("expected recorded partial_success run, got %+v", run)
	}
}

func TestRunDisablesHourlyWhenConfigured(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedActiveAsset(t, store, "bitcoin")

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client := &fakeSeriesClient{charts: map[string]*coingecko.MarketChart{
		"bitcoin": chartAt(now.Add(-24 * time.Hour)),
	}}

	runner, err := NewRunner(RunnerOptions{
		Client:     client,
		AssetStore: store,
		PriceStore: store,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := summary.PerAsset["bitcoin"]
	if !result.HourlySkipped || result.HourlyInserted != 0 {
		t.Fatalf("expected hourly disabled, got %+v", result)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected a single daily call, got %v", client.calls)
	}
}
