// Package graph holds the in-memory snapshot of the registry graph.
//
// The snapshot is replaced wholesale by bulk sync and patched piecemeal by
// profile completion. Readers always load the current snapshot; a snapshot
// value itself is never mutated after publication.
package graph

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
)

// Snapshot is an immutable view of the graph at one point in time.
type Snapshot struct {
	profiles map[string]*models.Profile
}

var emptySnapshot = &Snapshot{profiles: map[string]*models.Profile{}}

func (s *Snapshot) Len() int { return len(s.profiles) }

// Get returns a copy of the profile with the given id.
func (s *Snapshot) Get(id string) (*models.Profile, bool) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Find returns a copy of the first profile matching pred, in id order.
func (s *Snapshot) Find(pred func(*models.Profile) bool) (*models.Profile, bool) {
	for _, id := range s.ids() {
		p := s.profiles[id]
		if pred(p) {
			return p.Clone(), true
		}
	}
	return nil, false
}

// Profiles returns copies of all profiles ordered by id.
func (s *Snapshot) Profiles() []*models.Profile {
	out := make([]*models.Profile, 0, len(s.profiles))
	for _, id := range s.ids() {
		out = append(out, s.profiles[id].Clone())
	}
	return out
}

func (s *Snapshot) ids() []string {
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByShareCode matches profiles addressable by the given share code.
func ByShareCode(code string) func(*models.Profile) bool {
	code = identifier.Normalize(code)
	return func(p *models.Profile) bool {
		return p.ShareCode != "" && identifier.Normalize(p.ShareCode) == code
	}
}

// ByLegacyID matches profiles carrying the given legacy hierarchical id.
func ByLegacyID(id string) func(*models.Profile) bool {
	id = identifier.Normalize(id)
	return func(p *models.Profile) bool {
		return p.LegacyID != "" && identifier.Normalize(p.LegacyID) == id
	}
}

// Store publishes snapshots and signals when the graph becomes populated.
type Store struct {
	mu    sync.Mutex
	snap  atomic.Pointer[Snapshot]
	ready chan struct{}
}

func NewStore() *Store {
	s := &Store{ready: make(chan struct{})}
	s.snap.Store(emptySnapshot)
	return s
}

// Current returns the snapshot as of now. Callers must not keep it across
// waits; call Current again instead.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

func (s *Store) Find(pred func(*models.Profile) bool) (*models.Profile, bool) {
	return s.Current().Find(pred)
}

func (s *Store) IsPopulated() bool {
	return s.Current().Len() > 0
}

// Ready returns a channel closed once the graph holds at least one profile.
// If the graph is emptied again a fresh channel is handed out.
func (s *Store) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// WaitPopulated blocks until the graph is populated, ctx is done or max
// elapses. It returns common.ErrGraphTimeout on the ceiling.
func (s *Store) WaitPopulated(ctx context.Context, max time.Duration) error {
	if s.IsPopulated() {
		return nil
	}

	timer := time.NewTimer(max)
	defer timer.Stop()

	select {
	case <-s.Ready():
		return nil
	case <-timer.C:
		return common.ErrGraphTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replace swaps in a new snapshot built from profiles.
func (s *Store) Replace(profiles []*models.Profile) {
	next := make(map[string]*models.Profile, len(profiles))
	for _, p := range profiles {
		if p == nil || p.ID == "" {
			continue
		}
		next[p.ID] = p.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(&Snapshot{profiles: next})
}

// Upsert adds or replaces individual profiles.
func (s *Store) Upsert(profiles ...*models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked(len(profiles))
	for _, p := range profiles {
		if p == nil || p.ID == "" {
			continue
		}
		next[p.ID] = p.Clone()
	}
	s.publish(&Snapshot{profiles: next})
}

// Patch applies patch to the profile with the given id. It reports false if
// the profile is not in the graph.
func (s *Store) Patch(id string, patch models.ProfilePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.snap.Load().profiles[id]
	if !ok {
		return false
	}

	next := s.copyLocked(0)
	next[id] = cur.Apply(patch)
	s.publish(&Snapshot{profiles: next})
	return true
}

func (s *Store) copyLocked(extra int) map[string]*models.Profile {
	cur := s.snap.Load().profiles
	next := make(map[string]*models.Profile, len(cur)+extra)
	for id, p := range cur {
		next[id] = p
	}
	return next
}

func (s *Store) publish(next *Snapshot) {
	wasPopulated := s.snap.Load().Len() > 0
	s.snap.Store(next)

	switch {
	case !wasPopulated && next.Len() > 0:
		close(s.ready)
	case wasPopulated && next.Len() == 0:
		s.ready = make(chan struct{})
	}
}
