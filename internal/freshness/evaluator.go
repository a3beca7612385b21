// Package freshness decides whether a price series needs refreshing and how
// far back the next fetch must reach, based on the asset's watermark.
package freshness

import "time"

// Policy holds the staleness threshold and lookback cap for one grain.
// Daily and hourly grains are evaluated with independent policies.
type Policy struct {
	// MinAge is the minimum age of the last observation before a refresh
	// is worthwhile. A grain younger than this is skipped for the run.
	MinAge time.Duration

	// MaxLookbackDays caps how many days of history one fetch may request.
	// For the hourly grain this is bounded by the provider window beyond
	// which hourly granularity is not guaranteed.
	MaxLookbackDays int
}

// ShouldRun reports whether the grain needs refreshing: true when the series
// was never ingested or the last observation is at least MinAge old.
func (p Policy) ShouldRun(lastObserved *time.Time, now time.Time) bool {
	if lastObserved == nil {
		return true
	}
	return now.Sub(*lastObserved) >= p.MinAge
}

// DaysToPull computes the lookback window for the next fetch.
//
// A missing watermark, or one at least MaxLookbackDays old, is a cold
// backfill and requests the full window. Otherwise the window is the whole-day
// age plus a 2-day buffer that absorbs provider timezone/rounding edges and
// any gap since the last successful run. The result is always in
// [1, MaxLookbackDays].
func (p Policy) DaysToPull(lastObserved *time.Time, now time.Time) int {
	if lastObserved == nil {
		return p.MaxLookbackDays
	}

	ageDays := int(now.Sub(*lastObserved).Hours() / 24)
	if ageDays >= p.MaxLookbackDays {
		return p.MaxLookbackDays
	}

	days := ageDays + 2
	if days < 1 {
		days = 1
	}
	if days > p.MaxLookbackDays {
		days = p.MaxLookbackDays
	}
	return days
}
