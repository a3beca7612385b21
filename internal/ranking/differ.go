package ranking

import (
	"sort"
	"time"

	"coin-tracker/internal/domain"
)

// Diff compares a group's previous member set to its newly computed member
// list and returns JOINED/LEFT events.
//
// LEFT events carry no rank or market cap (the asset is no longer ranked);
// JOINED events carry the member's current rank and market cap. Assets in
// both sets produce nothing, even when their rank changed. Output order is
// deterministic: LEFT sorted by asset id, then JOINED by rank.
func Diff(groupID string, old []string, next []*domain.GroupMember, now time.Time) []*domain.MembershipEvent {
	oldSet := make(map[string]struct{}, len(old))
	for _, id := range old {
		oldSet[id] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, m := range next {
		nextSet[m.AssetID] = struct{}{}
	}

	var events []*domain.MembershipEvent

	left := make([]string, 0)
	for _, id := range old {
		if _, stays := nextSet[id]; !stays {
			left = append(left, id)
		}
	}
	sort.Strings(left)
	for _, id := range left {
		events = append(events, &domain.MembershipEvent{
			AssetID:   id,
			GroupID:   groupID,
			Type:      domain.EventLeft,
			EventTime: now,
		})
	}

	for _, m := range next {
		if _, was := oldSet[m.AssetID]; was {
			continue
		}
		rank := m.Rank
		events = append(events, &domain.MembershipEvent{
			AssetID:   m.AssetID,
			GroupID:   groupID,
			Type:      domain.EventJoined,
			EventTime: now,
			MarketCap: m.MarketCap,
			Rank:      &rank,
		})
	}

	return events
}
