package postgres

import (
	"context"
	"sync"

	"github.com/pavemap/backend/internal/domain"
)

// MockRepository implements domain.DatasetRepository in memory for demo mode
type MockRepository struct {
	mu       sync.RWMutex
	datasets map[int]domain.YearDataset
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{datasets: make(map[int]domain.YearDataset)}
}

// SaveDataset keeps the dataset in memory
func (r *MockRepository) SaveDataset(ctx context.Context, ds domain.YearDataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[ds.Year] = ds
	return nil
}

// LoadDataset returns a stored dataset or domain.ErrDatasetNotFound
func (r *MockRepository) LoadDataset(ctx context.Context, year int) (domain.YearDataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[year]
	if !ok {
		return domain.YearDataset{}, domain.ErrDatasetNotFound
	}
	return ds, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
