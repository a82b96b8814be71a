package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/domain"
)

var _ domain.DatasetRepository = (*MockRepository)(nil)
var _ domain.DatasetRepository = (*PostgresRepository)(nil)

func TestMockRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()

	_, err := repo.LoadDataset(ctx, 2024)
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

	ds := domain.YearDataset{Year: 2024, SuperSections: []domain.SuperSection{{ID: "super-h-0"}}}
	require.NoError(t, repo.SaveDataset(ctx, ds))

	got, err := repo.LoadDataset(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, ds, got)
	assert.NoError(t, repo.Health(ctx))
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	assert.True(t, timeOrZero(nil).IsZero())
}
