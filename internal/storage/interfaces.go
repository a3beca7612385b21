package storage

import (
	"context"

	"coin-tracker/internal/domain"
)

// AssetStore provides access to the crypto_asset registry.
type AssetStore interface {
	// ListActive retrieves all active assets ordered by external id.
	ListActive(ctx context.Context) ([]*domain.Asset, error)

	// GetByExternalID retrieves an asset by its provider id.
	// Returns ErrNotFound if not exists.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Asset, error)

	// UpsertByExternalID creates the asset or refreshes its symbol/name,
	// returning the stable asset id either way. Safe for concurrent
	// callers: a single idempotent lookup-or-create.
	UpsertByExternalID(ctx context.Context, a *domain.Asset) (string, error)

	// RefreshActiveFlags recomputes is_active for every asset: true iff
	// the asset belongs to at least one group.
	RefreshActiveFlags(ctx context.Context) error
}

// PricePointStore persists price series with insert-only set semantics.
type PricePointStore interface {
	// CommitSeries atomically inserts the points for one asset and grain
	// and advances the grain's watermark to the maximum observed_at among
	// the fetched points (monotonic: never moved backward). A point whose
	// (asset, observed_at, currency) key already exists is skipped and
	// the stored value is preserved. Returns the number of rows actually
	// inserted.
	CommitSeries(ctx context.Context, assetID string, grain domain.Grain, points []*domain.PricePoint) (int, error)

	// ListSeries retrieves all stored points for an asset and grain,
	// ordered by observed_at ascending.
	ListSeries(ctx context.Context, assetID string, grain domain.Grain) ([]*domain.PricePoint, error)
}

// GroupStore provides access to the crypto_group catalog.
type GroupStore interface {
	// UpsertByTag creates the group or overwrites its type/description,
	// returning the stable group id either way.
	UpsertByTag(ctx context.Context, g *domain.Group) (string, error)
}

// MembershipStore owns group membership rows and the membership event ledger.
type MembershipStore interface {
	// Rebuild atomically replaces a group's membership. It reads the
	// current member set, passes it to decide, then deletes and
	// re-inserts the membership rows and appends the events decide
	// returned — all inside one transaction, so the diff can never run
	// against a membership state that has already changed.
	Rebuild(ctx context.Context, groupID string, members []*domain.GroupMember, decide func(old []string) []*domain.MembershipEvent) error

	// ListMembers retrieves a group's current member asset ids, sorted.
	ListMembers(ctx context.Context, groupID string) ([]string, error)

	// ListEvents retrieves a group's membership events ordered by event
	// time, then asset id.
	ListEvents(ctx context.Context, groupID string) ([]*domain.MembershipEvent, error)
}

// JobRunStore records job execution summaries, one row per job name.
type JobRunStore interface {
	// Record overwrites the job's row with the latest status and details.
	Record(ctx context.Context, run *domain.JobRun) error
}
