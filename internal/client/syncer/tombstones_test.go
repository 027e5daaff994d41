package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dverbovs/casekeeper/internal/models"
)

func TestTombstoneSet_FilterMasksDeletedIDs(t *testing.T) {
	s := newTombstoneSet(10 * time.Minute)
	s.Add("b")

	cases := []models.Case{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := s.Filter(cases)

	assert.Equal(t, []models.Case{{ID: "a"}, {ID: "c"}}, got)
	assert.True(t, s.Contains("b"))
}

func TestTombstoneSet_ConfirmSnapshotEvictsAbsentIDs(t *testing.T) {
	s := newTombstoneSet(10 * time.Minute)
	s.Add("gone")
	s.Add("still-there")

	// the remote snapshot still contains "still-there" but not "gone":
	// only the confirmed deletion is evicted
	s.ConfirmSnapshot([]models.Case{{ID: "still-there"}, {ID: "other"}})

	assert.False(t, s.Contains("gone"))
	assert.True(t, s.Contains("still-there"))
}

func TestTombstoneSet_TTLBound(t *testing.T) {
	s := newTombstoneSet(10 * time.Minute)

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Add("old")
	current = current.Add(11 * time.Minute)
	s.Add("fresh")

	assert.False(t, s.Contains("old"), "tombstone past the retention bound is evicted")
	assert.True(t, s.Contains("fresh"))
	assert.Equal(t, 1, s.Len())
}

func TestTombstoneSet_ReAddResetsClock(t *testing.T) {
	s := newTombstoneSet(10 * time.Minute)

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Add("x")
	current = current.Add(9 * time.Minute)
	s.Add("x")
	current = current.Add(9 * time.Minute)

	assert.True(t, s.Contains("x"))
}

func TestTombstoneSet_ZeroTTLNeverExpires(t *testing.T) {
	s := newTombstoneSet(0)

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Add("x")
	current = current.Add(24 * time.Hour)

	assert.True(t, s.Contains("x"))
}
