// Package repository is the Case Repository façade the presentation layer
// talks to. It narrows the sync coordinator and the local store to a small
// read/write surface and keeps callers away from sync internals.
package repository

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/models"
)

// Syncer is the coordinator surface the façade delegates to.
type Syncer interface {
	List(ctx context.Context) ([]models.Case, error)
	GetCase(ctx context.Context, id string) (*models.Case, error)
	CreateCase(ctx context.Context, c models.Case) (*models.Case, error)
	UpdateCase(ctx context.Context, c models.Case) (*models.Case, error)
	DeleteCase(ctx context.Context, id string)
	CreateReport(ctx context.Context, r models.Report) (*models.Report, error)
	ListReports(ctx context.Context, caseID string) ([]models.Report, error)
}

// CaseRepository is what list screens and detail screens depend on.
type CaseRepository struct {
	sync Syncer
}

func New(sync Syncer) *CaseRepository {
	return &CaseRepository{sync: sync}
}

// List returns the current case list, refreshed cache-first. The error is
// non-nil only when there is nothing at all to show.
func (r *CaseRepository) List(ctx context.Context) ([]models.Case, error) {
	return r.sync.List(ctx)
}

// GetOne reads a single case directly from the local cache.
func (r *CaseRepository) GetOne(ctx context.Context, id string) (*models.Case, error) {
	return r.sync.GetCase(ctx, id)
}

// Create stores a new case; it is visible locally before the remote push
// completes.
func (r *CaseRepository) Create(ctx context.Context, c models.Case) (*models.Case, error) {
	return r.sync.CreateCase(ctx, c)
}

// Update merges the patch over the stored case.
func (r *CaseRepository) Update(ctx context.Context, c models.Case) (*models.Case, error) {
	return r.sync.UpdateCase(ctx, c)
}

// Delete removes a case optimistically. It never fails from the caller's
// point of view; cleanup problems are logged by the coordinator and the
// case stays hidden regardless.
func (r *CaseRepository) Delete(ctx context.Context, id string) {
	r.sync.DeleteCase(ctx, id)
}

// CreateReport attaches a report to an existing case.
func (r *CaseRepository) CreateReport(ctx context.Context, rep models.Report) (*models.Report, error) {
	return r.sync.CreateReport(ctx, rep)
}

// ListReportsForCase returns the reports of one case, newest first.
func (r *CaseRepository) ListReportsForCase(ctx context.Context, caseID string) ([]models.Report, error) {
	return r.sync.ListReports(ctx, caseID)
}
