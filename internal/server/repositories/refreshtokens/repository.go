// Package refreshtokens persists server-stored refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dverbovs/casekeeper/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token with the given validity window.
	Create(ctx context.Context, userID, token string, validity time.Duration) error

	// Find returns the stored token, or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token; rotation deletes before re-issuing.
	Delete(ctx context.Context, token string) error
}
