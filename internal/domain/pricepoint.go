package domain

import "time"

// PricePoint is one canonical observation of price, market cap and volume
// for an asset in a quote currency. Corresponds to a row in
// crypto_asset_price_daily or crypto_asset_price_hourly depending on grain.
//
// Rows are append-only: a second write for the same
// (asset, observed_at, currency) key is a no-op and the stored value wins.
type PricePoint struct {
	ObservedAt time.Time // UTC instant of the observation
	Currency   string    // quote currency code, upper case (e.g. "USD")
	Price      float64
	MarketCap  *float64 // nil when the provider returned no market cap at this timestamp
	Volume     *float64 // nil when the provider returned no volume at this timestamp
}
