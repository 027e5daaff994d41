package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

func setupBlob(t *testing.T) (*BlobStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.json")
	s, err := OpenBlob(path)
	require.NoError(t, err)
	return s, path
}

func TestBlobStore_MissingFileIsEmptyCollection(t *testing.T) {
	s, _ := setupBlob(t)

	cases, err := s.ListCases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestBlobStore_CorruptFileIsEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cases": [truncated`), 0o600))

	s, err := OpenBlob(path)
	require.NoError(t, err, "corruption never propagates as an error")

	cases, err := s.ListCases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestBlobStore_PersistsAcrossReopen(t *testing.T) {
	s, path := setupBlob(t)
	ctx := context.Background()

	want := sampleCase("case-1", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.PutCase(ctx, want))
	require.NoError(t, s.PutReport(ctx, models.Report{
		ID: "r1", CaseID: "case-1", ParsedData: json.RawMessage(`{"k":1}`), CreatedAt: want.UpdatedAt,
	}))

	reopened, err := OpenBlob(path)
	require.NoError(t, err)

	got, err := reopened.GetCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	rs, err := reopened.ListReportsByCase(ctx, "case-1")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "r1", rs[0].ID)
}

func TestBlobStore_ListCases_OrderedByUpdatedAtDesc(t *testing.T) {
	s, _ := setupBlob(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutCase(ctx, sampleCase("old", base)))
	require.NoError(t, s.PutCase(ctx, sampleCase("new", base.Add(time.Hour))))

	cases, err := s.ListCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "new", cases[0].ID)
}

func TestBlobStore_ReplaceCases_MirrorsSnapshot(t *testing.T) {
	s, _ := setupBlob(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, s.PutCase(ctx, sampleCase("goes", base)))
	require.NoError(t, s.PutReport(ctx, models.Report{
		ID: "r1", CaseID: "goes", ParsedData: json.RawMessage(`{}`), CreatedAt: base,
	}))

	require.NoError(t, s.ReplaceCases(ctx, []models.Case{sampleCase("arrives", base)}))

	_, err := s.GetCase(ctx, "goes")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	rs, err := s.ListReportsByCase(ctx, "goes")
	require.NoError(t, err)
	assert.Empty(t, rs)

	got, err := s.GetCase(ctx, "arrives")
	require.NoError(t, err)
	assert.Equal(t, "arrives", got.ID)
}

func TestBlobStore_RemoveCase_CascadesAndTolerates(t *testing.T) {
	s, _ := setupBlob(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, s.PutCase(ctx, sampleCase("case-1", base)))
	require.NoError(t, s.PutReport(ctx, models.Report{
		ID: "r1", CaseID: "case-1", ParsedData: json.RawMessage(`{}`), CreatedAt: base,
	}))

	require.NoError(t, s.RemoveCase(ctx, "case-1"))
	require.NoError(t, s.RemoveCase(ctx, "case-1"))

	rs, err := s.ListReportsByCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestBlobStore_PutReport_UpsertsByID(t *testing.T) {
	s, _ := setupBlob(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, s.PutReport(ctx, models.Report{
		ID: "r1", CaseID: "c", ParsedData: json.RawMessage(`{"v":1}`), CreatedAt: base,
	}))
	require.NoError(t, s.PutReport(ctx, models.Report{
		ID: "r1", CaseID: "c", ParsedData: json.RawMessage(`{"v":2}`), CreatedAt: base,
	}))

	rs, err := s.ListReportsByCase(ctx, "c")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.JSONEq(t, `{"v":2}`, string(rs[0].ParsedData))
}
