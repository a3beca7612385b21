package domain

// MarketEntry is one row of a live market snapshot: an asset with its
// current market cap, as returned by the snapshot provider.
type MarketEntry struct {
	CoinGeckoID string
	Symbol      string
	Name        string
	Price       *float64
	MarketCap   *float64 // nil or non-numeric provider values rank as zero, never dropped
}

// RankedEntry is a market entry with its computed rank inside a group.
type RankedEntry struct {
	Entry MarketEntry
	Rank  int // 1-based
}
