// Package store implements the Local Cache Store: offline-capable,
// always-fast persistence of Case, Report, and Audit collections. Two
// engines exist: a SQLite database with indexed lookups for capable
// runtimes, and a whole-collection blob file for constrained ones.
package store

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/models"
)

// Store describes the operations the sync layer needs from local
// persistence. A locally corrupt record is treated as absent by every
// implementation; corruption never propagates as an error to callers.
type Store interface {
	// GetCase returns a case by id, or common.ErrorNotFound.
	GetCase(ctx context.Context, id string) (*models.Case, error)

	// ListCases returns all cached cases ordered by UpdatedAt descending.
	ListCases(ctx context.Context) ([]models.Case, error)

	// PutCase inserts a new case or replaces an existing one by id.
	PutCase(ctx context.Context, c models.Case) error

	// ReplaceCases makes the cached collection equal to the given
	// snapshot, removing cases (and their reports) no longer present.
	ReplaceCases(ctx context.Context, cases []models.Case) error

	// RemoveCase deletes a case and cascades removal of its reports.
	// Removing an absent case is not an error.
	RemoveCase(ctx context.Context, id string) error

	// PutReport inserts or replaces a report.
	PutReport(ctx context.Context, r models.Report) error

	// ListReportsByCase returns the reports of one case, newest first.
	ListReportsByCase(ctx context.Context, caseID string) ([]models.Report, error)

	// AppendAudit records a fire-and-forget audit entry.
	AppendAudit(ctx context.Context, e models.AuditEntry) error

	Close() error
}
