package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

const assetColumns = `
	id::text, coingecko_id, symbol, name,
	last_daily_observed_at, last_hourly_observed_at, is_active, created_at
`

// ListActive retrieves all active assets ordered by external id.
func (s *AssetStore) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM crypto_asset
		WHERE is_active = TRUE
		ORDER BY coingecko_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active assets: %w", err)
	}
	defer rows.Close()

	return scanAssets(rows)
}

// GetByExternalID retrieves an asset by its provider id. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM crypto_asset
		WHERE coingecko_id = $1
	`

	row := s.pool.QueryRow(ctx, query, externalID)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by external id: %w", err)
	}
	return a, nil
}

// UpsertByExternalID creates the asset or refreshes its symbol/name,
// returning the stable asset id either way. The ON CONFLICT upsert makes
// concurrent callers converge on the same row without a double-insert race.
func (s *AssetStore) UpsertByExternalID(ctx context.Context, a *domain.Asset) (string, error) {
	if a == nil || a.CoinGeckoID == "" {
		return "", storage.ErrInvalidInput
	}

	query := `
		INSERT INTO crypto_asset (coingecko_id, symbol, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (coingecko_id)
		DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name   = EXCLUDED.name
		RETURNING id::text
	`

	var id string
	if err := s.pool.QueryRow(ctx, query, a.CoinGeckoID, a.Symbol, a.Name).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert asset: %w", err)
	}
	return id, nil
}

// RefreshActiveFlags recomputes is_active for every asset from membership.
func (s *AssetStore) RefreshActiveFlags(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE crypto_asset SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("clear active flags: %w", err)
	}

	query := `
		UPDATE crypto_asset
		SET is_active = TRUE
		WHERE id IN (SELECT DISTINCT asset_id FROM crypto_asset_group)
	`
	if _, err := tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("set active flags: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// scanAsset scans a single row into an Asset.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(
		&a.ID,
		&a.CoinGeckoID,
		&a.Symbol,
		&a.Name,
		&a.LastDailyObservedAt,
		&a.LastHourlyObservedAt,
		&a.IsActive,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// scanAssets scans multiple rows into a slice of Asset.
func scanAssets(rows pgx.Rows) ([]*domain.Asset, error) {
	var assets []*domain.Asset

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}
