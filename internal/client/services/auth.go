package services

import (
	"context"
	"errors"

	"github.com/dverbovs/casekeeper/internal/client/remote"
	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/logging"
)

// Refresher is the slice of the sync coordinator the auth service needs:
// after a successful sign-in the case list and the change subscription
// must be rebound to the new identity.
type Refresher interface {
	Refresh(ctx context.Context)
}

// AuthService drives sign-in and registration against the remote store.
type AuthService struct {
	remote remote.Client
	sync   Refresher
	audit  *AuditSink
	log    logging.Logger
}

func NewAuthService(r remote.Client, sync Refresher, audit *AuditSink, log logging.Logger) *AuthService {
	return &AuthService{remote: r, sync: sync, audit: audit, log: log}
}

// Login authenticates and, on success, rebinds the coordinator to the new
// identity so the subscription and published list follow the sign-in.
func (a *AuthService) Login(ctx context.Context, username string, password []byte) error {
	if username == "" || len(password) == 0 {
		return common.ErrorValidation
	}

	err := a.remote.Login(ctx, username, string(password))
	common.WipeByteArray(password)
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			return common.ErrorInvalidLoginPassword
		}
		return err
	}

	if a.audit != nil {
		a.audit.Record(ctx, "auth.login", map[string]string{"username": username})
	}
	if a.sync != nil {
		a.sync.Refresh(ctx)
	}
	return nil
}

// Register creates a new identity; callers typically follow with Login.
func (a *AuthService) Register(ctx context.Context, username string, password []byte) error {
	if username == "" || len(password) == 0 {
		return common.ErrorValidation
	}

	err := a.remote.Register(ctx, username, string(password))
	common.WipeByteArray(password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorLoginAlreadyExists
		}
		return err
	}

	if a.audit != nil {
		a.audit.Record(ctx, "auth.register", map[string]string{"username": username})
	}
	return nil
}

// Identity returns the signed-in username, or "".
func (a *AuthService) Identity() string {
	return a.remote.Identity()
}
