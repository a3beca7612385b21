package memory

import (
	"context"
	"sort"

	"coin-tracker/internal/domain"
	"coin-tracker/internal/storage"
)

// UpsertByTag creates the group or overwrites its type and description,
// returning the stable group id either way.
func (s *Store) UpsertByTag(ctx context.Context, g *domain.Group) (string, error) {
	if g == nil || g.Tag == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.groupIDs[g.Tag]; ok {
		existing := s.groups[id]
		existing.Type = g.Type
		existing.Description = g.Description
		return id, nil
	}

	id := s.newID("group")
	s.groups[id] = &domain.Group{
		ID:          id,
		Tag:         g.Tag,
		Type:        g.Type,
		Description: g.Description,
	}
	s.groupIDs[g.Tag] = id
	return id, nil
}

// Rebuild atomically replaces a group's membership. The decide callback
// sees the member set as it stood at the start of the call.
func (s *Store) Rebuild(ctx context.Context, groupID string, members []*domain.GroupMember, decide func(old []string) []*domain.MembershipEvent) error {
	if groupID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return storage.ErrNotFound
	}

	old := make([]string, 0, len(s.members[groupID]))
	for _, m := range s.members[groupID] {
		old = append(old, m.AssetID)
	}
	sort.Strings(old)

	var events []*domain.MembershipEvent
	if decide != nil {
		events = decide(old)
	}

	next := make([]*domain.GroupMember, 0, len(members))
	for _, m := range members {
		if m == nil || m.AssetID == "" {
			return storage.ErrInvalidInput
		}
		copied := *m
		next = append(next, &copied)
	}
	s.members[groupID] = next

	for _, e := range events {
		copied := *e
		copied.GroupID = groupID
		s.events[groupID] = append(s.events[groupID], &copied)
	}
	return nil
}

// ListMembers retrieves a group's current member asset ids, sorted.
func (s *Store) ListMembers(ctx context.Context, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.members[groupID]))
	for _, m := range s.members[groupID] {
		out = append(out, m.AssetID)
	}
	sort.Strings(out)
	return out, nil
}

// ListEvents retrieves a group's membership events ordered by event time,
// then asset id.
func (s *Store) ListEvents(ctx context.Context, groupID string) ([]*domain.MembershipEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.MembershipEvent, 0, len(s.events[groupID]))
	for _, e := range s.events[groupID] {
		copied := *e
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EventTime.Equal(out[j].EventTime) {
			return out[i].EventTime.Before(out[j].EventTime)
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out, nil
}
