package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dverbovs/casekeeper/internal/models"
	"github.com/dverbovs/casekeeper/internal/server/feed"
)

const feedHeartbeat = 30 * time.Second

// handleFeed streams whole-collection snapshots for the caller's scope as
// server-sent events. A snapshot of the current state is sent on connect
// so a client that subscribes after a change still converges.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	owner := userID(r)

	snapshots, cancel := s.hub.Subscribe(owner)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	cases, err := s.cases.List(ctx, owner)
	if err != nil {
		s.log.Error(ctx, "feed: initial snapshot", "error", err)
		return
	}
	if err := writeSnapshot(w, flusher, cases); err != nil {
		return
	}

	ticker := time.NewTicker(feedHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := writeSnapshot(w, flusher, snap.Cases); err != nil {
				return
			}
		case <-ticker.C:
			// Comment lines keep intermediaries from closing idle streams.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshot(w http.ResponseWriter, flusher http.Flusher, cases []models.Case) error {
	if cases == nil {
		cases = []models.Case{}
	}
	payload, err := json.Marshal(feed.Snapshot{Cases: cases})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
