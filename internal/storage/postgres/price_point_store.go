package postgres

import (
	"context"
	"fmt"
	"time"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// PricePointStore implements storage.PricePointStore using PostgreSQL,
// with one table per grain.
type PricePointStore struct {
	pool *Pool
}

// NewPricePointStore creates a new PricePointStore.
func NewPricePointStore(pool *Pool) *PricePointStore {
	return &PricePointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

// tableForGrain maps a grain to its price table.
func tableForGrain(grain domain.Grain) (table, watermarkColumn string, err error) {
	switch grain {
	case domain.GrainDaily:
		return "crypto_asset_price_daily", "last_daily_observed_at", nil
	case domain.GrainHourly:
		return "crypto_asset_price_hourly", "last_hourly_observed_at", nil
	default:
		return "", "", fmt.Errorf("unknown grain %q: %w", grain, storage.ErrInvalidInput)
	}
}

// CommitSeries atomically inserts the points for one asset and grain and
// advances the grain's watermark. Conflicting keys are skipped (the stored
// value wins); the watermark only ever moves forward.
func (s *PricePointStore) CommitSeries(ctx context.Context, assetID string, grain domain.Grain, points []*domain.PricePoint) (int, error) {
	if assetID == "" {
		return 0, storage.ErrInvalidInput
	}
	table, watermarkColumn, err := tableForGrain(grain)
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO ` + table + ` (
			asset_id, observed_at, currency_code, price, market_cap_usd, volume_24h_usd
		) VALUES ($1::uuid, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_id, observed_at, currency_code) DO NOTHING
	`

	var inserted int
	maxObserved := time.Time{}
	for _, p := range points {
		if p == nil || p.Currency == "" {
			return 0, storage.ErrInvalidInput
		}

		tag, err := tx.Exec(ctx, insertQuery,
			assetID,
			p.ObservedAt,
			p.Currency,
			p.Price,
			p.MarketCap,
			p.Volume,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s price point: %w", grain, err)
		}
		inserted += int(tag.RowsAffected())

		if p.ObservedAt.After(maxObserved) {
			maxObserved = p.ObservedAt
		}
	}

	// Monotonic watermark advance: the guard keeps concurrent or
	// out-of-order runs from moving it backward.
	watermarkQuery := `
		UPDATE crypto_asset
		SET ` + watermarkColumn + ` = $2
		WHERE id = $1::uuid
		  AND (` + watermarkColumn + ` IS NULL OR ` + watermarkColumn + ` < $2)
	`
	if _, err := tx.Exec(ctx, watermarkQuery, assetID, maxObserved); err != nil {
		return 0, fmt.Errorf("advance %s watermark: %w", grain, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListSeries retrieves all stored points for an asset and grain, ordered by
// observed_at ascending.
func (s *PricePointStore) ListSeries(ctx context.Context, assetID string, grain domain.Grain) ([]*domain.PricePoint, error) {
	table, _, err := tableForGrain(grain)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT observed_at, currency_code, price, market_cap_usd, volume_24h_usd
		FROM ` + table + `
		WHERE asset_id = $1::uuid
		ORDER BY observed_at ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("list %s series: %w", grain, err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ObservedAt, &p.Currency, &p.Price, &p.MarketCap, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}
		p.ObservedAt = p.ObservedAt.UTC()
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
