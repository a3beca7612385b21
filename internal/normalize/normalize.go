// Package normalize converts raw provider market-chart payloads into
// canonical price points.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/domain"
)

// Merge joins the three chart series by timestamp key and returns canonical
// price points sorted ascending, plus data-quality warnings.
//
// The price series drives the merge: each price timestamp becomes one point,
// with market cap and volume looked up by the same timestamp and carried as
// nil when absent. The provider does not guarantee the three series are
// co-indexed, so length misalignment and orphaned market-cap/volume
// timestamps are reported as warnings rather than silently truncated.
func Merge(chart *coingecko.MarketChart, currency string) ([]*domain.PricePoint, []string) {
	if chart == nil || len(chart.Prices) == 0 {
		return nil, nil
	}

	var warnings []string
	if len(chart.MarketCaps) != len(chart.Prices) || len(chart.Volumes) != len(chart.Prices) {
		warnings = append(warnings, fmt.Sprintf(
			"series length mismatch: %d prices, %d market caps, %d volumes",
			len(chart.Prices), len(chart.MarketCaps), len(chart.Volumes)))
	}

	capsByTs := indexByTimestamp(chart.MarketCaps)
	volsByTs := indexByTimestamp(chart.Volumes)

	points := make([]*domain.PricePoint, 0, len(chart.Prices))
	seen := make(map[int64]struct{}, len(chart.Prices))

	for _, p := range chart.Prices {
		if p.Value == nil {
			warnings = append(warnings, fmt.Sprintf("null price at %d, point dropped", p.TimestampMs))
			continue
		}
		if _, dup := seen[p.TimestampMs]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate price timestamp %d, first kept", p.TimestampMs))
			continue
		}
		seen[p.TimestampMs] = struct{}{}

		points = append(points, &domain.PricePoint{
			ObservedAt: time.UnixMilli(p.TimestampMs).UTC(),
			Currency:   strings.ToUpper(currency),
			Price:      *p.Value,
			MarketCap:  capsByTs[p.TimestampMs],
			Volume:     volsByTs[p.TimestampMs],
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].ObservedAt.Before(points[j].ObservedAt)
	})

	return points, warnings
}

// CollapseDaily reduces points to one per UTC calendar date; within a date
// the chronologically last point wins. Input must not be mutated; output is
// sorted ascending. Hourly series are stored without collapsing.
func CollapseDaily(points []*domain.PricePoint) []*domain.PricePoint {
	if len(points) == 0 {
		return nil
	}

	byDate := make(map[string]*domain.PricePoint, len(points))
	for _, p := range points {
		key := p.ObservedAt.UTC().Format("2006-01-02")
		cur, ok := byDate[key]
		if !ok || p.ObservedAt.After(cur.ObservedAt) {
			byDate[key] = p
		}
	}

	collapsed := make([]*domain.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		collapsed = append(collapsed, p)
	}
	sort.Slice(collapsed, func(i, j int) bool {
		return collapsed[i].ObservedAt.Before(collapsed[j].ObservedAt)
	})

	return collapsed
}

// indexByTimestamp builds a timestamp -> value lookup for a chart series.
func indexByTimestamp(series []coingecko.ChartPoint) map[int64]*float64 {
	m := make(map[int64]*float64, len(series))
	for _, p := range series {
		m[p.TimestampMs] = p.Value
	}
	return m
}
