package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/dverbovs/casekeeper/internal/client/migrations"
	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/dbx"
	"github.com/dverbovs/casekeeper/internal/models"
)

// timeLayout is how timestamps are stored in SQLite text columns.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements Store over a local SQLite database. Lookups by
// case id are indexed; reports cascade with their parent case.
type SQLiteStore struct {
	db *sql.DB
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (creating if necessary) the local cache database at
// dsn, applies migrations, and returns the store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already-migrated database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const caseColumns = `id, name, purpose, notes, attestation_accepted, created_at, updated_at,
	auto_delete_at, fta_score, fta_risk_level, mugshot_url, charges, bond_amount, primary_target`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCase maps one row onto a Case. A row whose timestamps fail to parse
// is reported via the error so callers can treat the record as absent.
func scanCase(row rowScanner) (models.Case, error) {
	var c models.Case
	var notes, autoDeleteAt, riskLevel, mugshot, charges, target sql.NullString
	var score, bond sql.NullFloat64
	var createdAt, updatedAt string
	var attestation int

	err := row.Scan(&c.ID, &c.Name, &c.Purpose, &notes, &attestation, &createdAt, &updatedAt,
		&autoDeleteAt, &score, &riskLevel, &mugshot, &charges, &bond, &target)
	if err != nil {
		return models.Case{}, err
	}

	c.AttestationAccepted = attestation != 0

	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return models.Case{}, fmt.Errorf("corrupt created_at for %s: %w", c.ID, err)
	}
	if c.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return models.Case{}, fmt.Errorf("corrupt updated_at for %s: %w", c.ID, err)
	}
	if autoDeleteAt.Valid {
		ttl, err := time.Parse(timeLayout, autoDeleteAt.String)
		if err != nil {
			return models.Case{}, fmt.Errorf("corrupt auto_delete_at for %s: %w", c.ID, err)
		}
		c.AutoDeleteAt = &ttl
	}

	c.Notes = strPtrOf(notes)
	c.FTARiskLevel = strPtrOf(riskLevel)
	c.MugshotURL = strPtrOf(mugshot)
	c.Charges = strPtrOf(charges)
	c.PrimaryTarget = strPtrOf(target)
	if score.Valid {
		c.FTAScore = &score.Float64
	}
	if bond.Valid {
		c.BondAmount = &bond.Float64
	}

	return c, nil
}

func strPtrOf(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC().Format(timeLayout)
}

func putCase(ctx context.Context, db dbx.DBTX, c models.Case) error {
	query := `INSERT INTO cases (` + caseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			purpose = excluded.purpose,
			notes = excluded.notes,
			attestation_accepted = excluded.attestation_accepted,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			auto_delete_at = excluded.auto_delete_at,
			fta_score = excluded.fta_score,
			fta_risk_level = excluded.fta_risk_level,
			mugshot_url = excluded.mugshot_url,
			charges = excluded.charges,
			bond_amount = excluded.bond_amount,
			primary_target = excluded.primary_target
	`
	attestation := 0
	if c.AttestationAccepted {
		attestation = 1
	}
	_, err := db.ExecContext(ctx, query,
		c.ID, c.Name, c.Purpose, nullStr(c.Notes), attestation,
		c.CreatedAt.UTC().Format(timeLayout), c.UpdatedAt.UTC().Format(timeLayout),
		nullTime(c.AutoDeleteAt), nullFloat(c.FTAScore), nullStr(c.FTARiskLevel),
		nullStr(c.MugshotURL), nullStr(c.Charges), nullFloat(c.BondAmount), nullStr(c.PrimaryTarget))
	if err != nil {
		return fmt.Errorf("failed to upsert case: %w", err)
	}
	return nil
}

// PutCase inserts a new case or replaces an existing one by id.
func (s *SQLiteStore) PutCase(ctx context.Context, c models.Case) error {
	return putCase(ctx, s.db, c)
}

// GetCase returns the case with the given id. A row that fails to
// deserialize is treated as absent.
func (s *SQLiteStore) GetCase(ctx context.Context, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		// corrupt local record: absent, not fatal
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

// ListCases returns all cases ordered by updated_at descending, skipping
// any row that fails to deserialize.
func (s *SQLiteStore) ListCases(ctx context.Context) ([]models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY updated_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select cases: %w", err)
	}
	defer rows.Close()

	var result []models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			continue
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceCases mirrors the given snapshot into the cache: cases absent
// from the snapshot are removed together with their reports, the rest are
// upserted.
func (s *SQLiteStore) ReplaceCases(ctx context.Context, cases []models.Case) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if len(cases) == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM reports`); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM cases`)
			return err
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cases)), ", ")
		ids := make([]any, len(cases))
		for i, c := range cases {
			ids[i] = c.ID
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reports WHERE case_id NOT IN (`+placeholders+`)`, ids...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cases WHERE id NOT IN (`+placeholders+`)`, ids...); err != nil {
			return err
		}

		for _, c := range cases {
			if err := putCase(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveCase deletes a case and its reports. Removing an absent case is
// not an error.
func (s *SQLiteStore) RemoveCase(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE case_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete reports: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete case: %w", err)
		}
		return nil
	})
}

// PutReport inserts or replaces a report by id.
func (s *SQLiteStore) PutReport(ctx context.Context, r models.Report) error {
	query := `INSERT INTO reports (id, case_id, pdf_path, parsed_data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pdf_path = excluded.pdf_path,
			parsed_data = excluded.parsed_data
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.CaseID, nullStr(r.PDFPath), string(r.ParsedData), r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}
	return nil
}

// ListReportsByCase returns the reports of one case, newest first.
func (s *SQLiteStore) ListReportsByCase(ctx context.Context, caseID string) ([]models.Report, error) {
	query := `SELECT id, case_id, pdf_path, parsed_data, created_at FROM reports
		WHERE case_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()

	var result []models.Report
	for rows.Next() {
		var r models.Report
		var pdfPath sql.NullString
		var parsed, createdAt string
		if err := rows.Scan(&r.ID, &r.CaseID, &pdfPath, &parsed, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			continue
		}
		r.PDFPath = strPtrOf(pdfPath)
		r.ParsedData = []byte(parsed)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AppendAudit records one audit entry.
func (s *SQLiteStore) AppendAudit(ctx context.Context, e models.AuditEntry) error {
	query := `INSERT INTO audit_log (id, action, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Action, string(e.Details), e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}
