// Package syncer implements the Sync Coordinator: the single writer of
// the published case list. It reconciles the local cache store with the
// remote case store, masks pending deletes with tombstones, enriches
// snapshots with locally cached photos, and maintains at most one remote
// change subscription per signed-in identity.
package syncer

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dverbovs/casekeeper/internal/client/config"
	"github.com/dverbovs/casekeeper/internal/client/photocache"
	"github.com/dverbovs/casekeeper/internal/client/remote"
	"github.com/dverbovs/casekeeper/internal/client/store"
	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/filex"
	"github.com/dverbovs/casekeeper/internal/logging"
	"github.com/dverbovs/casekeeper/internal/models"

	"github.com/google/uuid"
)

// ErrNoData is published when a refresh fails and neither a previous
// publish nor the local cache has anything to show instead.
var ErrNoData = errors.New("no case data available")

// Auditor records user-visible actions. Recording never blocks case
// operations; implementations queue internally.
type Auditor interface {
	Record(ctx context.Context, action string, details any)
}

// Published is one emission of the case list. Cases is the complete
// current list, never a delta. Err is set only when there was nothing at
// all to publish.
type Published struct {
	Cases []models.Case
	Err   error
}

// Watcher receives every publish, in order. Callbacks run on the
// coordinator's goroutines and must not call back into the coordinator.
type Watcher func(Published)

// Coordinator owns the published list. All mutations of the list, the
// tombstone set, and the subscription state happen under one mutex, so
// publishes are totally ordered.
type Coordinator struct {
	store  store.Store
	remote remote.Client
	photos *photocache.Cache
	audit  Auditor
	log    logging.Logger
	cfg    *config.Config

	mu           stdsync.Mutex
	published    []models.Case
	hasPublished bool
	tombstones   *tombstoneSet
	watchers     map[int]Watcher
	nextWatcher  int

	// pendingCreates holds ids written locally that the remote store has
	// not acknowledged yet. They survive snapshot mirroring and are
	// re-pushed on every successful refresh until the remote accepts.
	pendingCreates map[string]struct{}

	subIdentity string
	subStop     func()

	bg stdsync.WaitGroup
}

func NewCoordinator(s store.Store, r remote.Client, photos *photocache.Cache, audit Auditor, log logging.Logger, cfg *config.Config) *Coordinator {
	return &Coordinator{
		store:          s,
		remote:         r,
		photos:         photos,
		audit:          audit,
		log:            log,
		cfg:            cfg,
		tombstones:     newTombstoneSet(cfg.TombstoneTTL),
		watchers:       make(map[int]Watcher),
		pendingCreates: make(map[string]struct{}),
	}
}

// Watch registers a callback for every subsequent publish. If a list has
// already been published the callback immediately receives the current
// one. The returned function unregisters.
func (c *Coordinator) Watch(w Watcher) (unregister func()) {
	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = w
	if c.hasPublished {
		w(Published{Cases: c.published})
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// publishLocked emits p to every watcher and records it as current.
// Callers hold c.mu.
func (c *Coordinator) publishLocked(p Published) {
	if p.Err == nil {
		c.published = p.Cases
		c.hasPublished = true
	}
	for _, w := range c.watchers {
		w(p)
	}
}

// List refreshes and returns the resulting published list. The error is
// non-nil only when nothing could be shown at all.
func (c *Coordinator) List(ctx context.Context) ([]models.Case, error) {
	c.Refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPublished {
		return nil, ErrNoData
	}
	return c.published, nil
}

// Refresh reconciles local and remote state and publishes the result.
// It is idempotent with respect to unchanged remote state and never
// blocks longer than the configured remote timeout plus local I/O.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.sweepExpired(context.WithoutCancel(ctx))
	}()

	if !c.cfg.SyncEnabled {
		c.publishFromLocal(ctx, false)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.RemoteTimeout)
	snapshot, err := c.remote.List(rctx)
	cancel()
	if err != nil {
		c.log.Warn(ctx, "remote list failed, serving cached cases", "error", err)
		c.publishFromLocal(ctx, true)
		return
	}

	c.acceptSnapshot(ctx, snapshot)
	c.pushPending(ctx)
	c.ensureSubscription()
}

// acceptSnapshot is the single ingestion point for remote snapshots,
// whether pulled by Refresh or pushed over the change feed.
func (c *Coordinator) acceptSnapshot(ctx context.Context, snapshot []models.Case) {
	c.mu.Lock()
	visible := c.tombstones.Filter(snapshot)
	inSnapshot := make(map[string]bool, len(snapshot))
	for _, cs := range snapshot {
		inSnapshot[cs.ID] = true
	}
	var unpushed []string
	for id := range c.pendingCreates {
		if inSnapshot[id] {
			delete(c.pendingCreates, id)
			continue
		}
		unpushed = append(unpushed, id)
	}
	c.mu.Unlock()

	// Locally created cases the remote has not acknowledged must survive
	// the snapshot mirror; pruning them here would lose offline work.
	for _, id := range unpushed {
		cs, err := c.store.GetCase(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				c.mu.Lock()
				delete(c.pendingCreates, id)
				c.mu.Unlock()
			}
			continue
		}
		visible = append(visible, *cs)
	}

	if err := c.store.ReplaceCases(ctx, visible); err != nil {
		c.log.Error(ctx, "mirroring snapshot to local cache failed", "error", err)
	}

	c.mu.Lock()
	c.publishLocked(Published{Cases: visible})
	c.tombstones.ConfirmSnapshot(snapshot)
	c.mu.Unlock()

	c.enrichAsync(ctx, visible)
}

// publishFromLocal falls back to the last published list, then the local
// cache. With requireData set (remote failure, not flight mode) an empty
// first-run cache is an explicit ErrNoData state, never a silent empty
// list; without it the local store is authoritative and empty is valid.
func (c *Coordinator) publishFromLocal(ctx context.Context, requireData bool) {
	c.mu.Lock()
	if c.hasPublished {
		c.publishLocked(Published{Cases: c.published})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	cached, err := c.store.ListCases(ctx)
	if err != nil {
		c.log.Error(ctx, "local cache read failed", "error", err)
		c.mu.Lock()
		c.publishLocked(Published{Err: ErrNoData})
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	visible := c.tombstones.Filter(cached)
	if requireData && len(visible) == 0 {
		c.publishLocked(Published{Err: ErrNoData})
		return
	}
	c.publishLocked(Published{Cases: visible})
}

// enrichAsync fills in missing mugshot URLs from the local photo cache
// and republishes once, without delaying the publish that triggered it.
func (c *Coordinator) enrichAsync(ctx context.Context, cases []models.Case) {
	if c.photos == nil {
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		enriched := make([]models.Case, len(cases))
		copy(enriched, cases)
		changed := false
		for i, cs := range enriched {
			if cs.MugshotURL != nil {
				continue
			}
			if uri, ok := c.photos.PhotoFor(cs.ID); ok {
				enriched[i].MugshotURL = &uri
				changed = true
			}
		}
		if !changed {
			return
		}

		for _, cs := range enriched {
			if cs.MugshotURL == nil {
				continue
			}
			if err := c.store.PutCase(context.WithoutCancel(ctx), cs); err != nil {
				c.log.Warn(context.WithoutCancel(ctx), "persisting enriched case failed", "id", cs.ID, "error", err)
			}
		}

		c.mu.Lock()
		c.publishLocked(Published{Cases: c.tombstones.Filter(enriched)})
		c.mu.Unlock()
	}()
}

// ensureSubscription keeps exactly one change-feed subscription open for
// the currently signed-in identity. Identity changes tear the old one
// down before the new one opens; sign-out tears down without replacing.
func (c *Coordinator) ensureSubscription() {
	identity := c.remote.Identity()

	c.mu.Lock()
	if identity == c.subIdentity {
		c.mu.Unlock()
		return
	}
	stop := c.subStop
	c.subStop = nil
	c.subIdentity = ""
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if identity == "" {
		return
	}

	stop, err := c.remote.Subscribe(context.Background(), func(snapshot []models.Case) {
		c.acceptSnapshot(context.Background(), snapshot)
	})
	if err != nil {
		c.log.Warn(context.Background(), "change feed subscribe failed", "identity", identity, "error", err)
		return
	}

	c.mu.Lock()
	// A concurrent refresh may have switched identity or installed its
	// own subscription while ours was opening; ours is then the duplicate.
	if c.remote.Identity() != identity || c.subStop != nil {
		c.mu.Unlock()
		stop()
		return
	}
	c.subIdentity = identity
	c.subStop = stop
	c.mu.Unlock()
}

// sweepExpired removes cases whose auto-delete moment has passed. The
// removals reuse the normal delete path so tombstones and remote state
// stay consistent.
func (c *Coordinator) sweepExpired(ctx context.Context) {
	cached, err := c.store.ListCases(ctx)
	if err != nil {
		c.log.Warn(ctx, "expiry sweep skipped", "error", err)
		return
	}

	now := time.Now()
	for _, cs := range cached {
		if cs.Expired(now) {
			c.log.Info(ctx, "case expired, deleting", "id", cs.ID)
			c.DeleteCase(ctx, cs.ID)
		}
	}
}

// GetCase serves a single case from the local cache.
func (c *Coordinator) GetCase(ctx context.Context, id string) (*models.Case, error) {
	c.mu.Lock()
	masked := c.tombstones.Contains(id)
	c.mu.Unlock()
	if masked {
		return nil, common.ErrorNotFound
	}
	return c.store.GetCase(ctx, id)
}

// CreateCase assigns the id, writes the local cache synchronously, and
// pushes to the remote store in the background. The returned case is
// immediately visible in the published list.
func (c *Coordinator) CreateCase(ctx context.Context, cs models.Case) (*models.Case, error) {
	if cs.Name == "" {
		return nil, common.ErrorValidation
	}
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = now
	}
	cs.UpdatedAt = now

	if err := c.store.PutCase(ctx, cs); err != nil {
		return nil, err
	}
	c.republishFromStore(ctx)
	c.recordAudit(ctx, "case.create", map[string]string{"id": cs.ID, "name": cs.Name})

	if c.cfg.SyncEnabled {
		c.mu.Lock()
		c.pendingCreates[cs.ID] = struct{}{}
		c.mu.Unlock()

		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			bctx := context.WithoutCancel(ctx)
			rctx, cancel := context.WithTimeout(bctx, c.cfg.RemoteTimeout)
			_, err := c.remote.Create(rctx, cs)
			cancel()
			if err == nil || errors.Is(err, common.ErrorAlreadyExists) {
				c.mu.Lock()
				delete(c.pendingCreates, cs.ID)
				c.mu.Unlock()
			} else {
				c.log.Warn(bctx, "remote create failed, case retained locally until next sync", "id", cs.ID, "error", err)
			}
			c.Refresh(bctx)
		}()
	}

	return &cs, nil
}

// UpdateCase merges the patch over the cached case and writes both
// stores. Unknown ids fail with common.ErrorNotFound.
func (c *Coordinator) UpdateCase(ctx context.Context, patch models.Case) (*models.Case, error) {
	base, err := c.GetCase(ctx, patch.ID)
	if err != nil {
		return nil, err
	}

	merged := models.Merge(*base, patch)
	merged.UpdatedAt = time.Now().UTC()

	if err := c.store.PutCase(ctx, merged); err != nil {
		return nil, err
	}
	c.republishFromStore(ctx)
	c.recordAudit(ctx, "case.update", map[string]string{"id": merged.ID})

	if c.cfg.SyncEnabled {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			bctx := context.WithoutCancel(ctx)
			rctx, cancel := context.WithTimeout(bctx, c.cfg.RemoteTimeout)
			if _, err := c.remote.Update(rctx, merged); err != nil {
				c.log.Warn(bctx, "remote update failed", "id", merged.ID, "error", err)
			}
			cancel()
			c.Refresh(bctx)
		}()
	}

	return &merged, nil
}

// DeleteCase removes a case optimistically: the id is tombstoned and the
// list republished before any slow work runs. Remote delete, local cache
// removal, artifact removal, and photo purge then proceed in the
// background; a failure of any one is logged as a partial delete and
// never resurrects the case in the published list.
func (c *Coordinator) DeleteCase(ctx context.Context, id string) {
	c.mu.Lock()
	c.tombstones.Add(id)
	remaining := make([]models.Case, 0, len(c.published))
	for _, cs := range c.published {
		if cs.ID != id {
			remaining = append(remaining, cs)
		}
	}
	c.publishLocked(Published{Cases: remaining})
	c.mu.Unlock()

	c.recordAudit(ctx, "case.delete", map[string]string{"id": id})

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		bctx := context.WithoutCancel(ctx)

		g, gctx := errgroup.WithContext(bctx)
		if c.cfg.SyncEnabled {
			g.Go(func() error {
				rctx, cancel := context.WithTimeout(gctx, c.cfg.RemoteTimeout)
				defer cancel()
				err := c.remote.Delete(rctx, id)
				if errors.Is(err, common.ErrorNotFound) {
					return nil
				}
				return err
			})
		}
		g.Go(func() error {
			return c.store.RemoveCase(gctx, id)
		})
		g.Go(func() error {
			return filex.RemoveCaseArtifacts(c.cfg.ArtifactDir, id)
		})
		g.Go(func() error {
			if c.photos != nil {
				c.photos.Purge(id)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			c.log.Warn(bctx, "partial delete, tombstone retained until snapshot confirms", "id", id, "error", err)
		}
	}()
}

// CreateReport attaches a report to its case in both stores.
func (c *Coordinator) CreateReport(ctx context.Context, r models.Report) (*models.Report, error) {
	if r.CaseID == "" {
		return nil, common.ErrorValidation
	}
	if _, err := c.GetCase(ctx, r.CaseID); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	if err := c.store.PutReport(ctx, r); err != nil {
		return nil, err
	}
	c.recordAudit(ctx, "report.create", map[string]string{"id": r.ID, "caseId": r.CaseID})

	if c.cfg.SyncEnabled {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RemoteTimeout)
			defer cancel()
			if _, err := c.remote.CreateReport(bctx, r); err != nil {
				c.log.Warn(bctx, "remote report create failed", "id", r.ID, "error", err)
			}
		}()
	}

	return &r, nil
}

// ListReports serves the reports of one case from the local cache.
func (c *Coordinator) ListReports(ctx context.Context, caseID string) ([]models.Report, error) {
	return c.store.ListReportsByCase(ctx, caseID)
}

// pushPending retries remote creation of locally created cases the
// server has not acknowledged yet. Runs in the background; an id leaves
// the pending set only on an ack or when the case is gone locally.
func (c *Coordinator) pushPending(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pendingCreates))
	for id := range c.pendingCreates {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		bctx := context.WithoutCancel(ctx)

		for _, id := range ids {
			cs, err := c.store.GetCase(bctx, id)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					c.mu.Lock()
					delete(c.pendingCreates, id)
					c.mu.Unlock()
				}
				continue
			}

			rctx, cancel := context.WithTimeout(bctx, c.cfg.RemoteTimeout)
			_, err = c.remote.Create(rctx, *cs)
			cancel()
			if err == nil || errors.Is(err, common.ErrorAlreadyExists) {
				c.mu.Lock()
				delete(c.pendingCreates, id)
				c.mu.Unlock()
			} else {
				c.log.Warn(bctx, "re-pushing local case failed", "id", id, "error", err)
			}
		}
	}()
}

// republishFromStore publishes the current local cache contents, with
// tombstoned ids masked.
func (c *Coordinator) republishFromStore(ctx context.Context) {
	cached, err := c.store.ListCases(ctx)
	if err != nil {
		c.log.Error(ctx, "local cache read failed", "error", err)
		return
	}
	c.mu.Lock()
	c.publishLocked(Published{Cases: c.tombstones.Filter(cached)})
	c.mu.Unlock()
}

func (c *Coordinator) recordAudit(ctx context.Context, action string, details any) {
	if c.audit != nil {
		c.audit.Record(ctx, action, details)
	}
}

// Close tears down the subscription and waits for background work.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	stop := c.subStop
	c.subStop = nil
	c.subIdentity = ""
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.bg.Wait()
	return nil
}
