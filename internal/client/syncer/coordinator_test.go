package syncer

import (
	"context"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbovs/casekeeper/internal/client/config"
	"github.com/dverbovs/casekeeper/internal/client/photocache"
	"github.com/dverbovs/casekeeper/internal/client/remote"
	"github.com/dverbovs/casekeeper/internal/client/store"
	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/logging"
	"github.com/dverbovs/casekeeper/internal/models"
)

type fakeRemote struct {
	mu          stdsync.Mutex
	identity    string
	snapshot    []models.Case
	listErr     error
	listDelay   time.Duration
	listCalls   int
	createErr   error
	createCalls int
	created     []models.Case
	updated     []models.Case
	deleted     []string
	subsOpened  int
	subsActive  int
	onSnapshot  func([]models.Case)
}

func (f *fakeRemote) Login(ctx context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = username
	return nil
}

func (f *fakeRemote) Register(ctx context.Context, username, password string) error { return nil }

func (f *fakeRemote) Identity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *fakeRemote) setIdentity(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = id
}

func (f *fakeRemote) setSnapshot(cases []models.Case) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = cases
}

func (f *fakeRemote) Create(ctx context.Context, c models.Case) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, c)
	f.snapshot = append(f.snapshot, c)
	return &c, nil
}

func (f *fakeRemote) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeRemote) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeRemote) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeRemote) Update(ctx context.Context, c models.Case) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, c)
	return &c, nil
}

func (f *fakeRemote) List(ctx context.Context) ([]models.Case, error) {
	f.mu.Lock()
	f.listCalls++
	delay, err := f.listDelay, f.listErr
	snap := append([]models.Case(nil), f.snapshot...)
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, remote.ErrUnavailable
		}
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) CreateReport(ctx context.Context, r models.Report) (*models.Report, error) {
	return &r, nil
}

func (f *fakeRemote) ListReports(ctx context.Context, caseID string) ([]models.Report, error) {
	return nil, nil
}

func (f *fakeRemote) PresignReportPDF(ctx context.Context) (string, string, error) {
	return "", "", remote.ErrUnavailable
}

func (f *fakeRemote) Subscribe(ctx context.Context, onSnapshot func([]models.Case)) (func(), error) {
	f.mu.Lock()
	f.subsOpened++
	f.subsActive++
	f.onSnapshot = onSnapshot
	f.mu.Unlock()

	var once stdsync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.subsActive--
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeRemote) push(cases []models.Case) {
	f.mu.Lock()
	fn := f.onSnapshot
	f.mu.Unlock()
	if fn != nil {
		fn(cases)
	}
}

func (f *fakeRemote) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subsActive
}

func (f *fakeRemote) Close() error { return nil }

type fakeAuditor struct {
	mu      stdsync.Mutex
	actions []string
}

func (a *fakeAuditor) Record(ctx context.Context, action string, details any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func testLogger() logging.Logger {
	return logging.Discard()
}

func newTestCoordinator(t *testing.T, fr *fakeRemote) (*Coordinator, store.Store, *photocache.Cache) {
	t.Helper()

	dir := t.TempDir()
	st, err := store.OpenBlob(filepath.Join(dir, "cases.json"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ArtifactDir = filepath.Join(dir, "artifacts")
	cfg.RemoteTimeout = 200 * time.Millisecond

	photos := photocache.New()
	c := NewCoordinator(st, fr, photos, &fakeAuditor{}, testLogger(), cfg)
	t.Cleanup(func() { c.Close() })
	return c, st, photos
}

func namedCase(id, name string) models.Case {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Case{
		ID:                  id,
		Name:                name,
		Purpose:             "fta_recovery",
		AttestationAccepted: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func ids(cases []models.Case) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.ID)
	}
	return out
}

func TestRefreshPublishesRemoteSnapshotAndMirrorsCache(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	fr.setSnapshot([]models.Case{namedCase("c1", "one"), namedCase("c2", "two")})
	c, st, _ := newTestCoordinator(t, fr)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids(got))

	cached, err := st.ListCases(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids(cached))

	// Unchanged remote state, unchanged result.
	again, err := c.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(got), ids(again))
}

func TestRefreshFallsBackToCacheWhenRemoteUnavailable(t *testing.T) {
	fr := &fakeRemote{identity: "alice", listErr: remote.ErrUnavailable}
	c, st, _ := newTestCoordinator(t, fr)

	require.NoError(t, st.PutCase(context.Background(), namedCase("c1", "offline")))

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))
}

func TestFirstRunWithoutCacheOrRemoteIsAnErrorState(t *testing.T) {
	fr := &fakeRemote{identity: "alice", listErr: remote.ErrUnavailable}
	c, st, _ := newTestCoordinator(t, fr)

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, ErrNoData)

	// The error state clears as soon as anything is cached.
	require.NoError(t, st.PutCase(context.Background(), namedCase("c1", "cached")))
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))
}

func TestFlightModeEmptyCacheIsNotAnError(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, _, _ := newTestCoordinator(t, fr)
	c.cfg.SyncEnabled = false

	// With sync off the local store is authoritative, so an empty
	// collection is a valid answer, not a failed first load.
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRefreshBoundedByRemoteTimeout(t *testing.T) {
	fr := &fakeRemote{identity: "alice", listDelay: 5 * time.Second}
	c, st, _ := newTestCoordinator(t, fr)
	require.NoError(t, st.PutCase(context.Background(), namedCase("c1", "cached")))

	start := time.Now()
	got, err := c.List(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestFlightModeNeverTouchesRemote(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, st, _ := newTestCoordinator(t, fr)
	c.cfg.SyncEnabled = false

	require.NoError(t, st.PutCase(context.Background(), namedCase("c1", "local")))

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))

	fr.mu.Lock()
	defer fr.mu.Unlock()
	assert.Zero(t, fr.listCalls)
	assert.Zero(t, fr.subsOpened)
}

func TestCreateVisibleBeforeRemoteAck(t *testing.T) {
	fr := &fakeRemote{identity: "alice", listErr: remote.ErrUnavailable}
	c, _, _ := newTestCoordinator(t, fr)

	created, err := c.CreateCase(context.Background(), models.Case{Name: "fresh", Purpose: "fta_recovery"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(got))

	assert.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return len(fr.created) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOfflineCreateSurvivesSnapshotMirror(t *testing.T) {
	fr := &fakeRemote{identity: "alice", createErr: remote.ErrUnavailable}
	c, st, _ := newTestCoordinator(t, fr)

	created, err := c.CreateCase(context.Background(), models.Case{Name: "offline", Purpose: "fta_recovery"})
	require.NoError(t, err)

	// Wait until the one-shot background push has failed.
	require.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return fr.createCalls >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// A remote snapshot that has never seen the case must not prune it
	// from the local store or the published list.
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids(got), created.ID)

	cached, err := st.GetCase(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "offline", cached.Name)

	// Once the remote recovers, the next refresh pushes the case through.
	fr.setCreateErr(nil)
	c.Refresh(context.Background())
	assert.Eventually(t, func() bool {
		return fr.createdCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMutationsTriggerBackgroundRefresh(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, _, _ := newTestCoordinator(t, fr)

	_, err := c.CreateCase(context.Background(), models.Case{ID: "c1", Name: "fresh", Purpose: "fta_recovery"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return fr.listCallCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	before := fr.listCallCount()
	_, err = c.UpdateCase(context.Background(), models.Case{ID: "c1", Name: "renamed"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return fr.listCallCount() > before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateRejectsUnnamedCase(t *testing.T) {
	fr := &fakeRemote{}
	c, _, _ := newTestCoordinator(t, fr)

	_, err := c.CreateCase(context.Background(), models.Case{})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdateMergePreservesUnpatchedFields(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, st, _ := newTestCoordinator(t, fr)

	notes := "meet informant at 9"
	base := namedCase("c1", "original")
	base.Notes = &notes
	require.NoError(t, st.PutCase(context.Background(), base))

	updated, err := c.UpdateCase(context.Background(), models.Case{ID: "c1", Name: "renamed"})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "fta_recovery", updated.Purpose)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, base.CreatedAt, updated.CreatedAt)
}

func TestUpdateUnknownID(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, _, _ := newTestCoordinator(t, fr)

	_, err := c.UpdateCase(context.Background(), models.Case{ID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteMasksUntilSnapshotConfirms(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	fr.setSnapshot([]models.Case{namedCase("c1", "keep"), namedCase("c2", "drop")})
	c, st, _ := newTestCoordinator(t, fr)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	c.DeleteCase(context.Background(), "c2")

	// Remote has not processed the delete yet; its snapshot still carries
	// the id but the published list must not resurrect it.
	got, err = c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))

	_, err = c.GetCase(context.Background(), "c2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return len(fr.deleted) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := st.GetCase(context.Background(), "c2")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	// Once a snapshot omits the id the tombstone is gone, so a later
	// re-creation under the same id becomes visible again.
	fr.setSnapshot([]models.Case{namedCase("c1", "keep")})
	got, err = c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(got))

	fr.setSnapshot([]models.Case{namedCase("c1", "keep"), namedCase("c2", "back")})
	got, err = c.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids(got))
}

func TestAtMostOneSubscriptionPerIdentity(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, _, _ := newTestCoordinator(t, fr)

	for i := 0; i < 5; i++ {
		c.Refresh(context.Background())
	}
	assert.Equal(t, 1, fr.activeSubs())

	fr.setIdentity("bob")
	c.Refresh(context.Background())
	assert.Equal(t, 1, fr.activeSubs())

	fr.setIdentity("carol")
	c.Refresh(context.Background())
	c.Refresh(context.Background())
	assert.Equal(t, 1, fr.activeSubs())

	fr.setIdentity("")
	c.Refresh(context.Background())
	assert.Equal(t, 0, fr.activeSubs())
}

func TestConcurrentRefreshesKeepSingleSubscription(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, _, _ := newTestCoordinator(t, fr)

	var wg stdsync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background())
		}()
	}
	wg.Wait()

	// Racing refreshes may each open a feed, but every duplicate must be
	// stopped before it is abandoned.
	assert.Equal(t, 1, fr.activeSubs())
}

func TestPushedSnapshotUpdatesPublishedList(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	fr.setSnapshot([]models.Case{namedCase("c1", "one")})
	c, _, _ := newTestCoordinator(t, fr)

	updates := make(chan Published, 16)
	unregister := c.Watch(func(p Published) { updates <- p })
	defer unregister()

	c.Refresh(context.Background())
	fr.push([]models.Case{namedCase("c1", "one"), namedCase("c3", "pushed")})

	require.Eventually(t, func() bool {
		for {
			select {
			case p := <-updates:
				if len(p.Cases) == 2 {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnrichmentFillsMugshotFromPhotoCache(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	fr.setSnapshot([]models.Case{namedCase("c1", "bare")})
	c, _, photos := newTestCoordinator(t, fr)
	photos.Put("c1", "file:///photos/c1.jpg")

	enriched := make(chan string, 16)
	unregister := c.Watch(func(p Published) {
		for _, cs := range p.Cases {
			if cs.ID == "c1" && cs.MugshotURL != nil {
				enriched <- *cs.MugshotURL
			}
		}
	})
	defer unregister()

	c.Refresh(context.Background())

	select {
	case uri := <-enriched:
		assert.Equal(t, "file:///photos/c1.jpg", uri)
	case <-time.After(2 * time.Second):
		t.Fatal("enriched publish never arrived")
	}
}

func TestExpirySweepDeletesOverdueCases(t *testing.T) {
	fr := &fakeRemote{identity: "alice", listErr: remote.ErrUnavailable}
	c, st, _ := newTestCoordinator(t, fr)

	past := time.Now().Add(-time.Hour)
	expired := namedCase("c1", "stale")
	expired.AutoDeleteAt = &past
	require.NoError(t, st.PutCase(context.Background(), expired))
	require.NoError(t, st.PutCase(context.Background(), namedCase("c2", "live")))

	// The sweep runs in the background, so the overdue case disappears
	// from the list shortly after a refresh rather than during it.
	assert.Eventually(t, func() bool {
		got, err := c.List(context.Background())
		return err == nil && len(got) == 1 && got[0].ID == "c2"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := st.GetCase(context.Background(), "c1")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefreshNotBlockedBySweep(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	fr.setSnapshot([]models.Case{namedCase("c1", "one")})
	c, st, _ := newTestCoordinator(t, fr)

	slow := &slowListStore{Store: st, delay: 500 * time.Millisecond}
	c.store = slow

	start := time.Now()
	c.Refresh(context.Background())
	elapsed := time.Since(start)

	// The sweep's own cache scan must not extend the refresh path.
	assert.Less(t, elapsed, 450*time.Millisecond)
}

// slowListStore delays ListCases to make a blocking sweep observable.
type slowListStore struct {
	store.Store
	delay time.Duration
}

func (s *slowListStore) ListCases(ctx context.Context) ([]models.Case, error) {
	time.Sleep(s.delay)
	return s.Store.ListCases(ctx)
}

func TestCreateReportRequiresExistingCase(t *testing.T) {
	fr := &fakeRemote{identity: "alice"}
	c, st, _ := newTestCoordinator(t, fr)

	_, err := c.CreateReport(context.Background(), models.Report{CaseID: "ghost"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, st.PutCase(context.Background(), namedCase("c1", "host")))
	r, err := c.CreateReport(context.Background(), models.Report{CaseID: "c1", ParsedData: []byte(`{"k":1}`)})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	reports, err := c.ListReports(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, r.ID, reports[0].ID)
}
