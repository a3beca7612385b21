package postgres

import (
	"context"
	"fmt"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// GroupStore implements storage.GroupStore using PostgreSQL.
type GroupStore struct {
	pool *Pool
}

// NewGroupStore creates a new GroupStore.
func NewGroupStore(pool *Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GroupStore = (*GroupStore)(nil)

// UpsertByTag creates the group or overwrites its type/description,
// returning the stable group id either way.
func (s *GroupStore) UpsertByTag(ctx context.Context, g *domain.Group) (string, error) {
	if g == nil || g.Tag == "" {
		return "", storage.ErrInvalidInput
	}

	query := `
		INSERT INTO crypto_group (tag, type, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (tag)
		DO UPDATE SET
			type        = EXCLUDED.type,
			description = EXCLUDED.description
		RETURNING id::text
	`

	var id string
	if err := s.pool.QueryRow(ctx, query, g.Tag, string(g.Type), g.Description).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert group: %w", err)
	}
	return id, nil
}
