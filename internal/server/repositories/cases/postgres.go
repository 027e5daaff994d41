package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/dbx"
	"github.com/dverbovs/casekeeper/internal/models"
)

const caseColumns = `id, name, purpose, notes, attestation_accepted, created_at, updated_at,
	auto_delete_at, fta_score, fta_risk_level, mugshot_url, charges, bond_amount, primary_target`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (models.Case, error) {
	var c models.Case
	var notes, riskLevel, mugshot, charges, target sql.NullString
	var autoDelete sql.NullTime
	var score, bond sql.NullFloat64

	err := row.Scan(&c.ID, &c.Name, &c.Purpose, &notes, &c.AttestationAccepted,
		&c.CreatedAt, &c.UpdatedAt, &autoDelete, &score, &riskLevel, &mugshot,
		&charges, &bond, &target)
	if err != nil {
		return c, err
	}

	if notes.Valid {
		c.Notes = &notes.String
	}
	if autoDelete.Valid {
		t := autoDelete.Time
		c.AutoDeleteAt = &t
	}
	if score.Valid {
		c.FTAScore = &score.Float64
	}
	if riskLevel.Valid {
		c.FTARiskLevel = &riskLevel.String
	}
	if mugshot.Valid {
		c.MugshotURL = &mugshot.String
	}
	if charges.Valid {
		c.Charges = &charges.String
	}
	if bond.Valid {
		c.BondAmount = &bond.Float64
	}
	if target.Valid {
		c.PrimaryTarget = &target.String
	}
	return c, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE owner_id = $1 ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE owner_id = $1 AND id = $2`

	c, err := scanCase(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID string, c models.Case) error {
	query :=
		`INSERT INTO cases (id, owner_id, name, purpose, notes, attestation_accepted,
			created_at, updated_at, auto_delete_at, fta_score, fta_risk_level,
			mugshot_url, charges, bond_amount, primary_target)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query, c.ID, ownerID, c.Name, c.Purpose, c.Notes,
		c.AttestationAccepted, c.CreatedAt, c.UpdatedAt, c.AutoDeleteAt, c.FTAScore,
		c.FTARiskLevel, c.MugshotURL, c.Charges, c.BondAmount, c.PrimaryTarget)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID string, c models.Case) error {
	query :=
		`UPDATE cases SET name = $3, purpose = $4, notes = $5, attestation_accepted = $6,
			updated_at = $7, auto_delete_at = $8, fta_score = $9, fta_risk_level = $10,
			mugshot_url = $11, charges = $12, bond_amount = $13, primary_target = $14
		 WHERE owner_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, c.ID, c.Name, c.Purpose, c.Notes,
		c.AttestationAccepted, c.UpdatedAt, c.AutoDeleteAt, c.FTAScore, c.FTARiskLevel,
		c.MugshotURL, c.Charges, c.BondAmount, c.PrimaryTarget)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cases WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
