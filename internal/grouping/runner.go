// Package grouping maintains the curated group catalog: it snapshots the
// market, recomputes each group's ranked membership, and writes the
// JOINED/LEFT event ledger.
package grouping

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coin-tracker/internal/coingecko"
	"coin-tracker/internal/domain"
	"coin-tracker/internal/observability"
	"coin-tracker/internal/ranking"
	"coin-tracker/internal/storage"
)

// SnapshotClient fetches live market snapshots.
type SnapshotClient interface {
	Markets(ctx context.Context, p coingecko.MarketsParams) ([]coingecko.MarketRow, error)
}

// GroupResult summarizes one group's outcome within a run.
type GroupResult struct {
	Members int `json:"members"`
	Joined  int `json:"joined"`
	Left    int `json:"left"`
}

// Summary is the outcome of a full run across the group catalog.
type Summary struct {
	Groups map[string]*GroupResult `json:"groups"`
	Errors map[string]string       `json:"errors,omitempty"`
}

// Status reports success only when no group errored.
func (s *Summary) Status() string {
	if len(s.Errors) > 0 {
		return domain.JobStatusPartialSuccess
	}
	return domain.JobStatusSuccess
}

// Runner executes the group selector job.
type Runner struct {
	client       SnapshotClient
	assets       storage.AssetStore
	groups       storage.GroupStore
	memberships  storage.MembershipStore
	jobRuns      storage.JobRunStore
	definitions  []ranking.Definition
	vsCurrency   string
	snapshotSize int
	categorySize int
	now          func() time.Time
	logger       *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Client          SnapshotClient
	AssetStore      storage.AssetStore
	GroupStore      storage.GroupStore
	MembershipStore storage.MembershipStore
	JobRunStore     storage.JobRunStore     // optional
	Definitions     []ranking.Definition    // default ranking.DefaultDefinitions()
	VSCurrency      string                  // default "usd"
	SnapshotSize    int                     // global page size, default 250
	CategorySize    int                     // category page size, default 50
	Now             func() time.Time        // default time.Now
	Logger          *log.Logger
}

// NewRunner creates a group selector runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.AssetStore == nil {
		return nil, errors.New("asset store is required")
	}
	if opts.GroupStore == nil {
		return nil, errors.New("group store is required")
	}
	if opts.MembershipStore == nil {
		return nil, errors.New("membership store is required")
	}

	definitions := opts.Definitions
	if definitions == nil {
		definitions = ranking.DefaultDefinitions()
	}

	vsCurrency := opts.VSCurrency
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	snapshotSize := opts.SnapshotSize
	if snapshotSize == 0 {
		snapshotSize = 250
	}
	categorySize := opts.CategorySize
	if categorySize == 0 {
		categorySize = 50
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		client:       opts.Client,
		assets:       opts.AssetStore,
		groups:       opts.GroupStore,
		memberships:  opts.MembershipStore,
		jobRuns:      opts.JobRunStore,
		definitions:  definitions,
		vsCurrency:   vsCurrency,
		snapshotSize: snapshotSize,
		categorySize: categorySize,
		now:          now,
		logger:       logger,
	}, nil
}

// Run recomputes every group in the catalog against a fresh market
// snapshot. A failed global snapshot aborts the run; a failure inside one
// group is recorded and the remaining groups still proceed. Active flags
// are recomputed once at the end so an asset dropped from its last group
// is deactivated in the same run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	now := r.now().UTC()

	global, err := r.snapshot(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("global market snapshot: %w", err)
	}
	globalByID := make(map[string]domain.MarketEntry, len(global))
	for _, e := range global {
		globalByID[e.CoinGeckoID] = e
	}

	summary := &Summary{
		Groups: make(map[string]*GroupResult, len(r.definitions)),
		Errors: make(map[string]string),
	}

	for _, def := range r.definitions {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result, err := r.rebuildGroup(ctx, def, global, globalByID, now)
		if err != nil {
			summary.Errors[def.Tag] = err.Error()
			r.logger.Printf("group %s failed: %v", def.Tag, err)
			continue
		}
		summary.Groups[def.Tag] = result
	}

	if err := r.assets.RefreshActiveFlags(ctx); err != nil {
		return nil, fmt.Errorf("refresh active flags: %w", err)
	}

	status := summary.Status()
	observability.RecordJobRun(domain.JobGroupSelector, status, time.Since(start).Seconds())

	if r.jobRuns != nil {
		run := &domain.JobRun{Name: domain.JobGroupSelector, Status: status, Details: summary}
		if err := r.jobRuns.Record(ctx, run); err != nil {
			r.logger.Printf("record job run: %v", err)
		}
	}

	r.logger.Printf("group selector finished: %d groups, status %s", len(summary.Groups), status)
	return summary, nil
}

// rebuildGroup recomputes one group's membership and ledger.
func (r *Runner) rebuildGroup(ctx context.Context, def ranking.Definition, global []domain.MarketEntry, globalByID map[string]domain.MarketEntry, now time.Time) (*GroupResult, error) {
	groupID, err := r.groups.UpsertByTag(ctx, &domain.Group{
		Tag:         def.Tag,
		Type:        def.Type,
		Description: def.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert group: %w", err)
	}

	candidates := global
	if def.Category != "" {
		candidates, err = r.snapshot(ctx, def.Category)
		if err != nil {
			return nil, fmt.Errorf("category snapshot %s: %w", def.Category, err)
		}
	}
	if len(candidates) == 0 {
		// An empty candidate set means the provider category returned
		// nothing; keep the existing membership rather than emptying it.
		r.logger.Printf("group %s: empty candidate set, membership left unchanged", def.Tag)
		return &GroupResult{}, nil
	}

	ranked := ranking.Build(def, candidates, globalByID)

	members := make([]*domain.GroupMember, 0, len(ranked))
	for _, re := range ranked {
		assetID, err := r.assets.UpsertByExternalID(ctx, &domain.Asset{
			CoinGeckoID: re.Entry.CoinGeckoID,
			Symbol:      re.Entry.Symbol,
			Name:        re.Entry.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert asset %s: %w", re.Entry.CoinGeckoID, err)
		}
		members = append(members, &domain.GroupMember{
			AssetID:   assetID,
			Rank:      re.Rank,
			MarketCap: re.Entry.MarketCap,
		})
	}

	result := &GroupResult{Members: len(members)}
	err = r.memberships.Rebuild(ctx, groupID, members, func(old []string) []*domain.MembershipEvent {
		events := ranking.Diff(groupID, old, members, now)
		for _, e := range events {
			if e.Type == domain.EventJoined {
				result.Joined++
			} else {
				result.Left++
			}
			observability.RecordMembershipEvent(def.Tag, string(e.Type))
		}
		return events
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild membership: %w", err)
	}
	return result, nil
}

// snapshot pulls one page of the markets listing, globally or restricted
// to a provider category. Category listings use a smaller page since
// curated categories are far shorter than the global market.
func (r *Runner) snapshot(ctx context.Context, category string) ([]domain.MarketEntry, error) {
	perPage := r.snapshotSize
	if category != "" {
		perPage = r.categorySize
	}
	rows, err := r.client.Markets(ctx, coingecko.MarketsParams{
		VSCurrency: r.vsCurrency,
		Page:       1,
		PerPage:    perPage,
		Category:   category,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.MarketEntry, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		entries = append(entries, domain.MarketEntry{
			CoinGeckoID: row.ID,
			Symbol:      row.Symbol,
			Name:        row.Name,
			Price:       row.CurrentPrice,
			MarketCap:   row.MarketCap,
		})
	}
	return entries, nil
}
