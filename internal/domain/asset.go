package domain

import "time"

// Grain is the time resolution of a stored price series.
type Grain string

const (
	GrainDaily  Grain = "daily"
	GrainHourly Grain = "hourly"
)

// Asset is a tracked cryptocurrency.
// Corresponds to the crypto_asset table.
//
// The ingestion path owns the two watermark fields; the grouping path owns
// IsActive (derived: has at least one group membership). Assets are never
// deleted, only deactivated.
type Asset struct {
	ID                   string     // stable UUID assigned by storage
	CoinGeckoID          string     // external series-provider id, unique
	Symbol               string
	Name                 string
	LastDailyObservedAt  *time.Time // latest persisted daily observation, nil if never ingested
	LastHourlyObservedAt *time.Time // latest persisted hourly observation, nil if never ingested
	IsActive             bool
	CreatedAt            time.Time
}
