package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dverbovs/casekeeper/internal/dbx"
	"github.com/dverbovs/casekeeper/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rep models.Report) error {
	query :=
		`INSERT INTO reports (id, case_id, pdf_path, parsed_data, created_at)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, rep.ID, rep.CaseID, rep.PDFPath,
		[]byte(rep.ParsedData), rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByCase(ctx context.Context, caseID string) ([]models.Report, error) {
	query :=
		`SELECT id, case_id, pdf_path, parsed_data, created_at FROM reports
		 WHERE case_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Report, 0)
	for rows.Next() {
		var rep models.Report
		var pdf sql.NullString
		var parsed []byte
		if err := rows.Scan(&rep.ID, &rep.CaseID, &pdf, &parsed, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if pdf.Valid {
			rep.PDFPath = &pdf.String
		}
		rep.ParsedData = parsed
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteByCase(ctx context.Context, caseID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE case_id = $1`, caseID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
