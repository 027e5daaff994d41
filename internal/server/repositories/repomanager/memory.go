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

// InMemoryRepositoryManager backs handler tests and single-process runs.
// The DBTX argument is ignored; state lives in the repositories.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	cases         *cases.MemoryRepository
	reports       *reports.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		cases:         cases.NewMemoryRepository(),
		reports:       reports.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *InMemoryRepositoryManager) Cases(db dbx.DBTX) cases.Repository {
	return m.cases
}

func (m *InMemoryRepositoryManager) Reports(db dbx.DBTX) reports.Repository {
	return m.reports
}
