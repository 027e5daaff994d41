package syncer

import (
	"time"

	"github.com/dverbovs/casekeeper/internal/models"
)

// tombstoneSet tracks case ids that were optimistically removed from the
// published list but whose deletion is not yet confirmed absent from the
// remote store. An id leaves the set when a remote snapshot no longer
// contains it, or unconditionally once its age exceeds ttl.
//
// The set is not safe for concurrent use; the Coordinator guards it with
// its own mutex.
type tombstoneSet struct {
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func newTombstoneSet(ttl time.Duration) *tombstoneSet {
	return &tombstoneSet{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Add marks id as pending deletion. Re-adding resets the retention clock.
func (s *tombstoneSet) Add(id string) {
	s.entries[id] = s.now()
}

// Contains reports whether id is still masked.
func (s *tombstoneSet) Contains(id string) bool {
	s.prune()
	_, ok := s.entries[id]
	return ok
}

// Filter returns cases with every tombstoned id removed.
func (s *tombstoneSet) Filter(cases []models.Case) []models.Case {
	s.prune()
	if len(s.entries) == 0 {
		return cases
	}

	filtered := make([]models.Case, 0, len(cases))
	for _, c := range cases {
		if _, ok := s.entries[c.ID]; !ok {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// ConfirmSnapshot evicts every tombstone whose id the remote snapshot no
// longer contains: the deletion is confirmed and the mask is not needed.
func (s *tombstoneSet) ConfirmSnapshot(cases []models.Case) {
	present := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		present[c.ID] = struct{}{}
	}
	for id := range s.entries {
		if _, ok := present[id]; !ok {
			delete(s.entries, id)
		}
	}
	s.prune()
}

// prune drops entries older than the retention bound.
func (s *tombstoneSet) prune() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, added := range s.entries {
		if added.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

func (s *tombstoneSet) Len() int {
	s.prune()
	return len(s.entries)
}
