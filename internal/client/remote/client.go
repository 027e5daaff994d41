// Package remote implements the Remote Case Store Client: CRUD plus a
// push change-feed against the authoritative shared store, scoped by the
// signed-in identity.
package remote

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/models"
)

// Client is the network-facing contract the sync layer depends on. All
// operations are scoped server-side by the identity carried in the access
// token.
type Client interface {
	// Login authenticates and stores the token pair for later calls.
	Login(ctx context.Context, username, password string) error

	// Register creates a new identity on the server.
	Register(ctx context.Context, username, password string) error

	// Identity returns the username the client is signed in as, or "".
	Identity() string

	// Create stores a new case, preserving the caller-supplied id.
	Create(ctx context.Context, c models.Case) (*models.Case, error)

	// Update replaces the stored case by id.
	Update(ctx context.Context, c models.Case) (*models.Case, error)

	// List returns the full current snapshot for the identity's scope,
	// bounded by the configured timeout. A timeout surfaces as
	// ErrUnavailable rather than a hang.
	List(ctx context.Context) ([]models.Case, error)

	// Delete removes a case; the server cascades its reports.
	Delete(ctx context.Context, id string) error

	// CreateReport attaches a report to its case.
	CreateReport(ctx context.Context, r models.Report) (*models.Report, error)

	// ListReports returns the reports of one case.
	ListReports(ctx context.Context, caseID string) ([]models.Report, error)

	// PresignReportPDF asks the server for a presigned PUT URL to store a
	// report PDF artifact; returns the storage key and the URL.
	PresignReportPDF(ctx context.Context) (key, url string, err error)

	// Subscribe opens the change feed for the identity's scope and calls
	// onSnapshot for every pushed snapshot. It is safe to call repeatedly;
	// the returned stop function ends delivery.
	Subscribe(ctx context.Context, onSnapshot func([]models.Case)) (stop func(), err error)

	Close() error
}
