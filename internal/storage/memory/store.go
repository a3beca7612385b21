// Package memory provides an in-memory storage implementation for tests
// and local development.
package memory

import (
	"fmt"
	"sync"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// Store is an in-memory implementation of every storage interface. A
// single struct backs all of them so derived state (watermarks, active
// flags) stays consistent across concerns, the way the database does.
type Store struct {
	mu sync.RWMutex

	nextID int

	assets   map[string]*domain.Asset // keyed by asset id
	assetIDs map[string]string        // external id -> asset id

	daily  map[string]map[string]domain.PricePoint // asset id -> point key -> point
	hourly map[string]map[string]domain.PricePoint

	groups   map[string]*domain.Group // keyed by group id
	groupIDs map[string]string        // tag -> group id

	members map[string][]*domain.GroupMember     // group id -> current members
	events  map[string][]*domain.MembershipEvent // group id -> event ledger

	jobRuns map[string]*domain.JobRun // job name -> latest run
}

// Compile-time interface checks.
var (
	_ storage.AssetStore      = (*Store)(nil)
	_ storage.PricePointStore = (*Store)(nil)
	_ storage.GroupStore      = (*Store)(nil)
	_ storage.MembershipStore = (*Store)(nil)
	_ storage.JobRunStore     = (*Store)(nil)
)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		assets:   make(map[string]*domain.Asset),
		assetIDs: make(map[string]string),
		daily:    make(map[string]map[string]domain.PricePoint),
		hourly:   make(map[string]map[string]domain.PricePoint),
		groups:   make(map[string]*domain.Group),
		groupIDs: make(map[string]string),
		members:  make(map[string][]*domain.GroupMember),
		events:   make(map[string][]*domain.MembershipEvent),
		jobRuns:  make(map[string]*domain.JobRun),
	}
}

// newID mints a process-local identifier. Callers must hold the write lock.
func (s *Store) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}
