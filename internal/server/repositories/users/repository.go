// Package users persists user accounts.
package users

import (
	"context"

	"github.com/dverbovs/casekeeper/internal/server/models"
)

type Repository interface {
	// Create stores a new user and fills in the generated id. A duplicate
	// username yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns the user by username, or common.ErrorNotFound.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}
