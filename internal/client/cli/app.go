// Package cli is the interactive investigator console. It wires the whole
// client together: local cache store, remote client, sync coordinator,
// repository façade, audit sink, and a small REPL on top.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dverbovs/casekeeper/internal/client/config"
	"github.com/dverbovs/casekeeper/internal/client/photocache"
	"github.com/dverbovs/casekeeper/internal/client/remote"
	"github.com/dverbovs/casekeeper/internal/client/repository"
	"github.com/dverbovs/casekeeper/internal/client/services"
	"github.com/dverbovs/casekeeper/internal/client/store"
	"github.com/dverbovs/casekeeper/internal/client/syncer"
	"github.com/dverbovs/casekeeper/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	log    logging.Logger

	store  store.Store
	remote remote.Client
	photos *photocache.Cache
	audit  *services.AuditSink
	sync   *syncer.Coordinator
	repo   *repository.CaseRepository
	auth   *services.AuthService

	reader *bufio.Reader
	out    *os.File
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	var st store.Store
	var err error
	switch cfg.CacheEngine {
	case config.EngineBlob:
		st, err = store.OpenBlob(cfg.BlobPath)
	default:
		st, err = store.OpenSQLite(ctx, cfg.DatabasePath)
	}
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}

	rc := remote.NewHTTPClient(cfg.ServerEndpointAddr, cfg.RemoteTimeout)
	photos := photocache.New()
	audit := services.NewAuditSink(st, log)
	coord := syncer.NewCoordinator(st, rc, photos, audit, log, cfg)

	return &App{
		config: cfg,
		log:    log,
		store:  st,
		remote: rc,
		photos: photos,
		audit:  audit,
		sync:   coord,
		repo:   repository.New(coord),
		auth:   services.NewAuthService(rc, coord, audit, log),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.remote.Identity() != ""
}

func (a *App) status() string {
	if id := a.remote.Identity(); id != "" {
		if a.config.SyncEnabled {
			return fmt.Sprintf("(%s online)", id)
		}
		return fmt.Sprintf("(%s offline)", id)
	}
	return "(signed out)"
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "CaseKeeper console (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

// Close releases every resource the app opened, flushing queued audit
// entries and stopping background sync work first.
func (a *App) Close() error {
	if err := a.sync.Close(); err != nil {
		a.log.Warn(context.Background(), "coordinator close failed", "error", err)
	}
	if err := a.audit.Close(); err != nil {
		a.log.Warn(context.Background(), "audit sink close failed", "error", err)
	}
	if err := a.remote.Close(); err != nil {
		a.log.Warn(context.Background(), "remote client close failed", "error", err)
	}
	return a.store.Close()
}
