package coingecko

import (
	"encoding/json"
	"fmt"
)

// ChartPoint is one [timestamp_ms, value] pair from a market_chart response.
// The value may be null in the provider payload (e.g. a missing market cap).
type ChartPoint struct {
	TimestampMs int64
	Value       *float64
}

// UnmarshalJSON decodes the provider's two-element array form.
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("chart point: expected [timestamp, value], got %d elements", len(raw))
	}
	if raw[0] == nil {
		return fmt.Errorf("chart point: null timestamp")
	}
	p.TimestampMs = int64(*raw[0])
	p.Value = raw[1]
	return nil
}

// MarketChart is the raw payload of /coins/{id}/market_chart: three series
// keyed by millisecond timestamps. The provider chooses granularity from the
// requested window; the three series are not guaranteed to be co-indexed.
type MarketChart struct {
	Prices     []ChartPoint `json:"prices"`
	MarketCaps []ChartPoint `json:"market_caps"`
	Volumes    []ChartPoint `json:"total_volumes"`
}

// MarketRow is one row of /coins/markets, ordered by market cap descending.
type MarketRow struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price"`
	MarketCap    *float64 `json:"market_cap"`
}

// MarketsParams are the query parameters for Markets.
type MarketsParams struct {
	VSCurrency string
	Page       int
	PerPage    int
	Category   string // optional provider category slug
}
