// Package ranking computes ranked group membership from market snapshots
// and diffs it against prior membership.
package ranking

import (
	"sort"

	"coin-tracker/internal/domain"
)

// Definition describes one curated group.
type Definition struct {
	Tag         string
	Type        domain.GroupType
	Description string

	// Category is the provider category slug restricting the candidate
	// set. Empty means the group ranks the global snapshot.
	Category string

	// Size is the target member count (top N by market cap).
	Size int

	// Mandatory lists provider ids that must always be members. A
	// mandatory id outside the top N is appended as an extra member
	// rather than displacing a ranked one; an id that cannot be resolved
	// at all is skipped without error.
	Mandatory []string
}

// Provider category slugs used by the default catalog.
const (
	MemeCategory = "meme-token"
	L1Category   = "layer-1"
	DefiCategory = "decentralized-finance-defi"
)

// Group tags used by the default catalog.
const (
	Top15Tag = "TOP15"
	MemeTag  = "MEME_TOP5"
	L1Tag    = "L1_BLUECHIP"
	DefiTag  = "DEFI_BLUECHIP"
)

// DefaultDefinitions returns the curated group catalog.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Tag:         Top15Tag,
			Type:        domain.GroupTypeRankBucket,
			Description: "Top 15 coins by market cap (USD)",
			Size:        15,
		},
		{
			Tag:         MemeTag,
			Type:        domain.GroupTypeTheme,
			Description: "Top meme coins by market cap (must include DOGE; 5 or 6 members)",
			Category:    MemeCategory,
			Size:        5,
			Mandatory:   []string{"dogecoin"},
		},
		{
			Tag:         L1Tag,
			Type:        domain.GroupTypeTheme,
			Description: "Sample of major Layer 1 blockchains (top by market cap in category)",
			Category:    L1Category,
			Size:        5,
		},
		{
			Tag:         DefiTag,
			Type:        domain.GroupTypeTheme,
			Description: "Sample of major DeFi blue-chip protocols (top by market cap in category)",
			Category:    DefiCategory,
			Size:        5,
		},
	}
}

// Build returns the ranked member list for a group definition.
//
// Candidates are sorted by market cap descending (missing market caps rank
// as zero, sorted last, never dropped) and the top Size entries become the
// base membership. Mandatory ids missing from the base are resolved from the
// full candidate list first, then from the global snapshot, and appended at
// ranks Size+1 onward.
func Build(def Definition, candidates []domain.MarketEntry, global map[string]domain.MarketEntry) []domain.RankedEntry {
	sorted := make([]domain.MarketEntry, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return marketCapOf(sorted[i]) > marketCapOf(sorted[j])
	})

	n := def.Size
	if n > len(sorted) {
		n = len(sorted)
	}

	ranked := make([]domain.RankedEntry, 0, n+len(def.Mandatory))
	inGroup := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ranked = append(ranked, domain.RankedEntry{Entry: sorted[i], Rank: i + 1})
		inGroup[sorted[i].CoinGeckoID] = struct{}{}
	}

	for _, id := range def.Mandatory {
		if _, ok := inGroup[id]; ok {
			continue
		}
		entry, ok := findEntry(sorted, id)
		if !ok {
			entry, ok = global[id]
		}
		if !ok {
			// Unresolvable mandatory member: build the group without it.
			continue
		}
		ranked = append(ranked, domain.RankedEntry{Entry: entry, Rank: len(ranked) + 1})
		inGroup[id] = struct{}{}
	}

	return ranked
}

// marketCapOf treats missing market caps as zero for ranking.
func marketCapOf(e domain.MarketEntry) float64 {
	if e.MarketCap == nil {
		return 0
	}
	return *e.MarketCap
}

func findEntry(entries []domain.MarketEntry, id string) (domain.MarketEntry, bool) {
	for _, e := range entries {
		if e.CoinGeckoID == id {
			return e, true
		}
	}
	return domain.MarketEntry{}, false
}
