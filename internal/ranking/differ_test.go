package ranking

import (
	"testing"
	"time"

	"coin-tracker/internal/domain"
)

var diffNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func member(assetID string, rank int, mcap float64) *domain.GroupMember {
	return &domain.GroupMember{AssetID: assetID, Rank: rank, MarketCap: &mcap}
}

func TestDiff_JoinAndLeave(t *testing.T) {
	old := []string{"A", "B", "C"}
	next := []*domain.GroupMember{
		member("B", 1, 3e9),
		member("C", 2, 2e9),
		member("D", 3, 1e9),
	}

	events := Diff("g1", old, next, diffNow)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	leftEvent := events[0]
	if leftEvent.Type != domain.EventLeft || leftEvent.AssetID != "A" {
		t.Errorf("expected LEFT for A, got %s for %s", leftEvent.Type, leftEvent.AssetID)
	}
	if leftEvent.Rank != nil || leftEvent.MarketCap != nil {
		t.Error("LEFT event must omit rank and market cap")
	}
	if !leftEvent.EventTime.Equal(diffNow) {
		t.Errorf("expected event time %v, got %v", diffNow, leftEvent.EventTime)
	}

	joinEvent := events[1]
	if joinEvent.Type != domain.EventJoined || joinEvent.AssetID != "D" {
		t.Errorf("expected JOINED for D, got %s for %s", joinEvent.Type, joinEvent.AssetID)
	}
	if joinEvent.Rank == nil || *joinEvent.Rank != 3 {
		t.Errorf("JOINED event must carry rank, got %v", joinEvent.Rank)
	}
	if joinEvent.MarketCap == nil || *joinEvent.MarketCap != 1e9 {
		t.Errorf("JOINED event must carry market cap, got %v", joinEvent.MarketCap)
	}
}

func TestDiff_RankChurnProducesNoEvent(t *testing.T) {
	old := []string{"A", "B"}
	next := []*domain.GroupMember{
		member("B", 1, 2e9), // was rank 2, now rank 1
		member("A", 2, 1e9),
	}

	events := Diff("g1", old, next, diffNow)
	if len(events) != 0 {
		t.Errorf("rank-only churn must emit no events, got %d", len(events))
	}
}

func TestDiff_InitialPopulation(t *testing.T) {
	next := []*domain.GroupMember{
		member("A", 1, 2e9),
		member("B", 2, 1e9),
	}

	events := Diff("g1", nil, next, diffNow)

	if len(events) != 2 {
		t.Fatalf("expected 2 JOINED events, got %d", len(events))
	}
	for _, e := range events {
		if e.Type != domain.EventJoined {
			t.Errorf("expected JOINED, got %s", e.Type)
		}
	}
}

func TestDiff_EmptyNext(t *testing.T) {
	events := Diff("g1", []string{"A"}, nil, diffNow)

	if len(events) != 1 || events[0].Type != domain.EventLeft {
		t.Fatalf("expected a single LEFT event, got %v", events)
	}
}
