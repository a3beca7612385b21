package memory

import (
	"context"
	"sort"
	"time"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

func pointKey(p *domain.PricePoint) string {
	return p.ObservedAt.UTC().Format(time.RFC3339Nano) + "|" + p.Currency
}

// seriesFor returns the point map for a grain. Callers must hold the lock.
func (s *Store) seriesFor(grain domain.Grain) (map[string]map[string]domain.PricePoint, error) {
	switch grain {
	case domain.GrainDaily:
		return s.daily, nil
	case domain.GrainHourly:
		return s.hourly, nil
	default:
		return nil, storage.ErrInvalidInput
	}
}

// CommitSeries inserts the points for one asset and grain, skipping keys
// that already exist, and advances the grain's watermark monotonically.
func (s *Store) CommitSeries(ctx context.Context, assetID string, grain domain.Grain, points []*domain.PricePoint) (int, error) {
	if assetID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return 0, storage.ErrNotFound
	}

	series, err := s.seriesFor(grain)
	if err != nil {
		return 0, err
	}
	byKey := series[assetID]
	if byKey == nil {
		byKey = make(map[string]domain.PricePoint)
		series[assetID] = byKey
	}

	inserted := 0
	var maxObserved time.Time
	for _, p := range points {
		if p == nil {
			return inserted, storage.ErrInvalidInput
		}
		if p.ObservedAt.After(maxObserved) {
			maxObserved = p.ObservedAt
		}
		key := pointKey(p)
		if _, exists := byKey[key]; exists {
			continue
		}
		byKey[key] = *p
		inserted++
	}

	if !maxObserved.IsZero() {
		observed := maxObserved.UTC()
		switch grain {
		case domain.GrainDaily:
			if asset.LastDailyObservedAt == nil || asset.LastDailyObservedAt.Before(observed) {
				asset.LastDailyObservedAt = &observed
			}
		case domain.GrainHourly:
			if asset.LastHourlyObservedAt == nil || asset.LastHourlyObservedAt.Before(observed) {
				asset.LastHourlyObservedAt = &observed
			}
		}
	}

	return inserted, nil
}

// ListSeries retrieves all stored points for an asset and grain, ordered
// by observed_at ascending.
func (s *Store) ListSeries(ctx context.Context, assetID string, grain domain.Grain) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, err := s.seriesFor(grain)
	if err != nil {
		return nil, err
	}

	var out []*domain.PricePoint
	for _, p := range series[assetID] {
		copied := p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out, nil
}
