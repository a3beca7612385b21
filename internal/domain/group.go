package domain

import "time"

// GroupType distinguishes ranked buckets from thematic baskets.
type GroupType string

const (
	GroupTypeRankBucket GroupType = "RankBucket"
	GroupTypeTheme      GroupType = "Theme"
)

// Group is a curated basket of assets. Corresponds to the crypto_group table.
// Groups are upserted by tag; type and description may be overwritten on each run.
type Group struct {
	ID          string // stable UUID assigned by storage
	Tag         string // unique stable key, e.g. "TOP15"
	Type        GroupType
	Description string
}

// GroupMember is one asset's place in a freshly computed group membership.
type GroupMember struct {
	AssetID   string
	Rank      int      // 1-based rank within the group
	MarketCap *float64 // market cap at ranking time, nil if unknown
}

// MembershipEventType is the kind of membership transition.
type MembershipEventType string

const (
	EventJoined MembershipEventType = "JOINED"
	EventLeft   MembershipEventType = "LEFT"
)

// MembershipEvent records an asset joining or leaving a group.
// Append-only ledger; rank-only churn produces no event.
type MembershipEvent struct {
	AssetID   string
	GroupID   string
	Type      MembershipEventType
	EventTime time.Time
	MarketCap *float64 // nil for LEFT events (asset is no longer ranked)
	Rank      *int     // nil for LEFT events
}
