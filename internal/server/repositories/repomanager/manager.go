// Package repomanager hands out repository implementations over a shared
// database handle, so services can run repositories inside or outside a
// transaction without knowing the backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dverbovs/casekeeper/internal/dbx"
	"github.com/dverbovs/casekeeper/internal/server/repositories/cases"
	"github.com/dverbovs/casekeeper/internal/server/repositories/refreshtokens"
	"github.com/dverbovs/casekeeper/internal/server/repositories/reports"
	"github.com/dverbovs/casekeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Cases(db dbx.DBTX) cases.Repository
	Reports(db dbx.DBTX) reports.Repository
}
