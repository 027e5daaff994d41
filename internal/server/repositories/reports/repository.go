// Package reports persists case reports. Ownership checks happen in the
// service layer by resolving the parent case first.
package reports

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/models"
)

type Repository interface {
	// Create stores a new report.
	Create(ctx context.Context, r models.Report) error

	// ListByCase returns a case's reports, newest first.
	ListByCase(ctx context.Context, caseID string) ([]models.Report, error)

	// DeleteByCase removes every report of a case.
	DeleteByCase(ctx context.Context, caseID string) error
}
