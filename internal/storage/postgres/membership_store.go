package postgres

import (
	"context"
	"fmt"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// MembershipStore implements storage.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *Pool
}

// NewMembershipStore creates a new MembershipStore.
func NewMembershipStore(pool *Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MembershipStore = (*MembershipStore)(nil)

// Rebuild atomically replaces a group's membership. The current member set
// is read with FOR UPDATE inside the same transaction that deletes it, so
// the decide callback never diffs against stale state.
func (s *MembershipStore) Rebuild(ctx context.Context, groupID string, members []*domain.GroupMember, decide func(old []string) []*domain.MembershipEvent) error {
	if groupID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	oldQuery := `
		SELECT asset_id::text
		FROM crypto_asset_group
		WHERE group_id = $1::uuid
		ORDER BY asset_id
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, oldQuery, groupID)
	if err != nil {
		return fmt.Errorf("read current members: %w", err)
	}
	var old []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan member row: %w", err)
		}
		old = append(old, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate member rows: %w", err)
	}

	var events []*domain.MembershipEvent
	if decide != nil {
		events = decide(old)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM crypto_asset_group WHERE group_id = $1::uuid`, groupID); err != nil {
		return fmt.Errorf("clear memberships: %w", err)
	}

	// Membership rows record existence only. Rank and market cap at the
	// time of a change live in the event ledger.
	memberQuery := `
		INSERT INTO crypto_asset_group (asset_id, group_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (asset_id, group_id) DO NOTHING
	`
	for _, m := range members {
		if m == nil || m.AssetID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, memberQuery, m.AssetID, groupID); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
	}

	eventQuery := `
		INSERT INTO crypto_group_event (
			asset_id, group_id, event_type, event_time, market_cap_usd, rank
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
	`
	for _, e := range events {
		if _, err := tx.Exec(ctx, eventQuery,
			e.AssetID,
			groupID,
			string(e.Type),
			e.EventTime,
			e.MarketCap,
			e.Rank,
		); err != nil {
			return fmt.Errorf("insert membership event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListMembers retrieves a group's current member asset ids, sorted.
func (s *MembershipStore) ListMembers(ctx context.Context, groupID string) ([]string, error) {
	query := `
		SELECT asset_id::text
		FROM crypto_asset_group
		WHERE group_id = $1::uuid
		ORDER BY asset_id ASC
	`

	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}

	return members, nil
}

// ListEvents retrieves a group's membership events ordered by event time,
// then asset id.
func (s *MembershipStore) ListEvents(ctx context.Context, groupID string) ([]*domain.MembershipEvent, error) {
	query := `
		SELECT asset_id::text, group_id::text, event_type, event_time, market_cap_usd, rank
		FROM crypto_group_event
		WHERE group_id = $1::uuid
		ORDER BY event_time ASC, asset_id ASC
	`

	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list membership events: %w", err)
	}
	defer rows.Close()

	var events []*domain.MembershipEvent
	for rows.Next() {
		var e domain.MembershipEvent
		var eventType string
		if err := rows.Scan(&e.AssetID, &e.GroupID, &eventType, &e.EventTime, &e.MarketCap, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan membership event row: %w", err)
		}
		e.Type = domain.MembershipEventType(eventType)
		e.EventTime = e.EventTime.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership event rows: %w", err)
	}

	return events, nil
}
