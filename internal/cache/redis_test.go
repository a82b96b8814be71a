package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/dataset"
	"github.com/pavemap/backend/internal/domain"
)

func TestEncodePreservesGeneratedDataset(t *testing.T) {
	ds, err := dataset.NewGenerator(dataset.Options{Seed: 5}).Generate(2024)
	require.NoError(t, err)

	raw, err := Encode(ds)
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(ds, got); diff != "" {
		t.Fatalf("dataset changed in the cache (-want +got):\n%s", diff)
	}
	require.NoError(t, got.Validate())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(OpenRedis("", "", 0), time.Hour)

	require.NoError(t, c.Set(ctx, domain.YearDataset{Year: 2025}))
	_, ok, err := c.Get(ctx, 2025)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "pavemap:dataset:2023", key(2023))
}
