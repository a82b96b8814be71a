package domain

import (
	"context"
	"errors"
)

// ErrDatasetNotFound is returned when no dataset is stored for a year
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetRepository defines the interface for dataset persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type DatasetRepository interface {
	// SaveDataset persists a complete year dataset, replacing any previous one
	SaveDataset(ctx context.Context, ds YearDataset) error

	// LoadDataset retrieves the dataset for a year or ErrDatasetNotFound
	LoadDataset(ctx context.Context, year int) (YearDataset, error)

	// Health checks storage connectivity
	Health(ctx context.Context) error
}

// DatasetCache is a read-through cache in front of the repository
type DatasetCache interface {
	Get(ctx context.Context, year int) (YearDataset, bool, error)
	Set(ctx context.Context, ds YearDataset) error
}
