// Package services holds the client-side application services: the audit
// sink that records user-visible actions without blocking them, and the
// auth service that drives sign-in against the remote store.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dverbovs/casekeeper/internal/client/store"
	"github.com/dverbovs/casekeeper/internal/logging"
	"github.com/dverbovs/casekeeper/internal/models"
)

const auditQueueSize = 256

// AuditSink queues audit entries on a channel and persists them from a
// single background worker. Record never blocks: when the queue is full
// the entry is dropped and counted, because case operations must not wait
// on audit I/O.
type AuditSink struct {
	store  store.Store
	log    logging.Logger
	inbox  chan models.AuditEntry
	done   chan struct{}
	cancel context.CancelFunc
}

func NewAuditSink(s store.Store, log logging.Logger) *AuditSink {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &AuditSink{
		store:  s,
		log:    log,
		inbox:  make(chan models.AuditEntry, auditQueueSize),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go sink.run(ctx)
	return sink
}

// Record queues one audit entry. Details is marshalled best-effort; a
// value that cannot be marshalled is recorded without details.
func (a *AuditSink) Record(ctx context.Context, action string, details any) {
	entry := models.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	select {
	case a.inbox <- entry:
	default:
		a.log.Warn(ctx, "audit queue full, entry dropped", "action", action)
	}
}

func (a *AuditSink) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case entry := <-a.inbox:
			a.persist(ctx, entry)
		}
	}
}

// drain flushes whatever is still queued at shutdown.
func (a *AuditSink) drain() {
	for {
		select {
		case entry := <-a.inbox:
			a.persist(context.Background(), entry)
		default:
			return
		}
	}
}

func (a *AuditSink) persist(ctx context.Context, entry models.AuditEntry) {
	if err := a.store.AppendAudit(context.WithoutCancel(ctx), entry); err != nil {
		a.log.Warn(ctx, "audit append failed", "action", entry.Action, "error", err)
	}
}

// Close stops the worker after flushing queued entries.
func (a *AuditSink) Close() error {
	a.cancel()
	<-a.done
	return nil
}
