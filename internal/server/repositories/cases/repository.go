// Package cases persists the authoritative case collection, scoped by
// owning user.
package cases

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/models"
)

type Repository interface {
	// ListByOwner returns the owner's full case collection, most recently
	// updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Case, error)

	// Get returns one of the owner's cases, or common.ErrorNotFound.
	Get(ctx context.Context, ownerID, id string) (*models.Case, error)

	// Create stores a new case with its client-assigned id. A duplicate id
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, ownerID string, c models.Case) error

	// Update replaces the stored case, or common.ErrorNotFound.
	Update(ctx context.Context, ownerID string, c models.Case) error

	// Delete removes the case; its reports cascade at the storage level.
	// A missing id yields common.ErrorNotFound.
	Delete(ctx context.Context, ownerID, id string) error
}
