package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

// blobDocument is the on-disk shape of the whole-collection blob.
type blobDocument struct {
	Cases   []models.Case       `json:"cases"`
	Reports []models.Report     `json:"reports"`
	Audit   []models.AuditEntry `json:"audit"`
}

// BlobStore implements Store as a single JSON file holding the whole
// collection: deserialized once into memory, rewritten on every mutation.
// Write amplification is accepted for simplicity on constrained runtimes.
// A corrupt or missing file loads as an empty collection.
type BlobStore struct {
	path string

	mu      sync.Mutex
	cases   map[string]models.Case
	reports map[string][]models.Report
	audit   []models.AuditEntry
}

// OpenBlob loads (or initializes) the blob file at path.
func OpenBlob(path string) (*BlobStore, error) {
	s := &BlobStore{
		path:    path,
		cases:   make(map[string]models.Case),
		reports: make(map[string][]models.Report),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// missing file is a fresh, empty collection
		return s, nil
	}

	var doc blobDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// corrupt blob: start empty rather than fail the caller
		return s, nil
	}

	for _, c := range doc.Cases {
		s.cases[c.ID] = c
	}
	for _, r := range doc.Reports {
		s.reports[r.CaseID] = append(s.reports[r.CaseID], r)
	}
	s.audit = doc.Audit

	return s, nil
}

// persist writes the whole collection atomically (temp file + rename).
// Callers must hold the mutex.
func (s *BlobStore) persist() error {
	doc := blobDocument{Audit: s.audit}
	for _, c := range s.cases {
		doc.Cases = append(doc.Cases, c)
	}
	for _, rs := range s.reports {
		doc.Reports = append(doc.Reports, rs...)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cases-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *BlobStore) GetCase(_ context.Context, id string) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (s *BlobStore) ListCases(_ context.Context) ([]models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *BlobStore) PutCase(_ context.Context, c models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cases[c.ID] = c
	return s.persist()
}

func (s *BlobStore) ReplaceCases(_ context.Context, cases []models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.Case, len(cases))
	for _, c := range cases {
		next[c.ID] = c
	}
	for id := range s.reports {
		if _, ok := next[id]; !ok {
			delete(s.reports, id)
		}
	}
	s.cases = next
	return s.persist()
}

func (s *BlobStore) RemoveCase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cases, id)
	delete(s.reports, id)
	return s.persist()
}

func (s *BlobStore) PutReport(_ context.Context, r models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.reports[r.CaseID]
	for i := range rs {
		if rs[i].ID == r.ID {
			rs[i] = r
			return s.persist()
		}
	}
	s.reports[r.CaseID] = append(rs, r)
	return s.persist()
}

func (s *BlobStore) ListReportsByCase(_ context.Context, caseID string) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := append([]models.Report(nil), s.reports[caseID]...)
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
	return rs, nil
}

func (s *BlobStore) AppendAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, e)
	return s.persist()
}

func (s *BlobStore) Close() error {
	return nil
}
