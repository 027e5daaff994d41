package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbovs/casekeeper/internal/models"
)

func TestBroadcastReachesOnlyOwnScope(t *testing.T) {
	h := NewHub()

	aliceCh, cancelAlice := h.Subscribe("alice")
	defer cancelAlice()
	bobCh, cancelBob := h.Subscribe("bob")
	defer cancelBob()

	h.Broadcast("alice", []models.Case{{ID: "c1"}})

	select {
	case snap := <-aliceCh:
		require.Len(t, snap.Cases, 1)
		assert.Equal(t, "c1", snap.Cases[0].ID)
	case <-time.After(time.Second):
		t.Fatal("alice never received the snapshot")
	}

	select {
	case snap := <-bobCh:
		t.Fatalf("bob received a foreign snapshot: %+v", snap)
	default:
	}
}

func TestCancelClosesAndUnregisters(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("alice")
	require.Equal(t, 1, h.Subscribers("alice"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("alice"))

	// broadcasting into an empty scope is a no-op
	h.Broadcast("alice", nil)
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe("alice")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*3; i++ {
			h.Broadcast("alice", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}
