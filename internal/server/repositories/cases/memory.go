package cases

import (
	"context"
	"sort"
	"sync"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

type ownerKey struct {
	owner string
	id    string
}

type MemoryRepository struct {
	mu    sync.Mutex
	cases map[ownerKey]models.Case
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{cases: make(map[ownerKey]models.Case)}
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Case, 0)
	for k, c := range r.cases {
		if k.owner == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, ownerID, id string) (*models.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cases[ownerKey{ownerID, id}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) Create(ctx context.Context, ownerID string, c models.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := ownerKey{ownerID, c.ID}
	if _, ok := r.cases[k]; ok {
		return common.ErrorAlreadyExists
	}
	r.cases[k] = c
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, ownerID string, c models.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := ownerKey{ownerID, c.ID}
	if _, ok := r.cases[k]; !ok {
		return common.ErrorNotFound
	}
	r.cases[k] = c
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := ownerKey{ownerID, id}
	if _, ok := r.cases[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.cases, k)
	return nil
}
