package memory

import (
	"context"
	"sort"
	"time"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// ListActive retrieves all active assets ordered by external id.
func (s *Store) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Asset
	for _, a := range s.assets {
		if a.IsActive {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CoinGeckoID < out[j].CoinGeckoID
	})
	return out, nil
}

// GetByExternalID retrieves an asset by its provider id.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.assetIDs[externalID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.assets[id]
	return &copied, nil
}

// UpsertByExternalID creates the asset or refreshes its symbol and name,
// returning the stable asset id either way.
func (s *Store) UpsertByExternalID(ctx context.Context, a *domain.Asset) (string, error) {
	if a == nil || a.CoinGeckoID == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.assetIDs[a.CoinGeckoID]; ok {
		existing := s.assets[id]
		existing.Symbol = a.Symbol
		existing.Name = a.Name
		return id, nil
	}

	id := s.newID("asset")
	s.assets[id] = &domain.Asset{
		ID:          id,
		CoinGeckoID: a.CoinGeckoID,
		Symbol:      a.Symbol,
		Name:        a.Name,
		IsActive:    a.IsActive,
		CreatedAt:   time.Now().UTC(),
	}
	s.assetIDs[a.CoinGeckoID] = id
	return id, nil
}

// RefreshActiveFlags recomputes is_active for every asset: true iff the
// asset belongs to at least one group.
func (s *Store) RefreshActiveFlags(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool)
	for _, members := range s.members {
		for _, m := range members {
			active[m.AssetID] = true
		}
	}
	for id, a := range s.assets {
		a.IsActive = active[id]
	}
	return nil
}
