package reports

import (
	"context"
	"sort"
	"sync"

	"github.com/dverbovs/casekeeper/internal/models"
)

type MemoryRepository struct {
	mu      sync.Mutex
	reports map[string][]models.Report
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reports: make(map[string][]models.Report)}
}

func (r *MemoryRepository) Create(ctx context.Context, rep models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.CaseID] = append(r.reports[rep.CaseID], rep)
	return nil
}

func (r *MemoryRepository) ListByCase(ctx context.Context, caseID string) ([]models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := append([]models.Report(nil), r.reports[caseID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) DeleteByCase(ctx context.Context, caseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, caseID)
	return nil
}
