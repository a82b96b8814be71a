package tier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/domain"
)

func TestTierForThresholds(t *testing.T) {
	tests := []struct {
		zoom float64
		want domain.Tier
	}{
		{-4, domain.TierOverview},
		{0, domain.TierOverview},
		{12.99, domain.TierOverview},
		{13, domain.TierDetail},
		{14.99, domain.TierDetail},
		{15, domain.TierInspection},
		{20, domain.TierInspection},
		{1e9, domain.TierInspection},
		{math.NaN(), domain.TierOverview},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.zoom, ThreeTier), "zoom %v", tt.zoom)
	}
}

func TestTwoTierVariant(t *testing.T) {
	assert.Equal(t, domain.TierOverview, TierFor(12, TwoTier))
	assert.Equal(t, domain.TierDetail, TierFor(13, TwoTier))
	assert.Equal(t, domain.TierDetail, TierFor(18, TwoTier))
	assert.True(t, LayersFor(domain.TierDetail, TwoTier).Distress)
	assert.False(t, LayersFor(domain.TierDetail, ThreeTier).Distress)
}

func TestTierIsMonotonic(t *testing.T) {
	for _, mode := range []Mode{ThreeTier, TwoTier} {
		prev := TierFor(-1, mode)
		prevLayers := LayersFor(prev, mode)
		for z := -1.0; z <= 22; z += 0.01 {
			cur := TierFor(z, mode)
			require.GreaterOrEqual(t, cur, prev, "zoom %v", z)

			layers := LayersFor(cur, mode)
			assert.True(t, layers.SuperSections)
			if prevLayers.Sections {
				assert.True(t, layers.Sections, "zoom %v hides sections", z)
			}
			if prevLayers.Distress {
				assert.True(t, layers.Distress, "zoom %v hides distress", z)
			}
			prev, prevLayers = cur, layers
		}
	}
}

func TestResolverEmitsOnTransitionsOnly(t *testing.T) {
	var layers []domain.VisibleLayers
	var ordinals []int
	r := NewResolver(ThreeTier,
		func(v domain.VisibleLayers) { layers = append(layers, v) },
		func(o int) { ordinals = append(ordinals, o) },
	)

	_, changed := r.Observe(10)
	assert.True(t, changed, "first observation always emits")

	_, changed = r.Observe(10)
	assert.False(t, changed)
	_, changed = r.Observe(12)
	assert.False(t, changed)

	tier, changed := r.Observe(13)
	assert.True(t, changed)
	assert.Equal(t, domain.TierDetail, tier)

	r.Observe(16)
	r.Observe(16)

	assert.Equal(t, []int{0, 1, 2}, ordinals)
	assert.Equal(t, []domain.VisibleLayers{
		{SuperSections: true},
		{SuperSections: true, Sections: true},
		{SuperSections: true, Sections: true, Distress: true},
	}, layers)

	cur, curLayers := r.Current()
	assert.Equal(t, domain.TierInspection, cur)
	assert.True(t, curLayers.Distress)
}

func TestResolverNilCallbacks(t *testing.T) {
	r := NewResolver(ThreeTier, nil, nil)
	assert.NotPanics(t, func() { r.Observe(14) })
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("two")
	require.NoError(t, err)
	assert.Equal(t, TwoTier, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ThreeTier, m)

	_, err = ParseMode("four")
	assert.Error(t, err)
}
