package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/domain"
)

func TestIndexFor(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		n        int
		want     int
	}{
		{"start", 0, 100, 0},
		{"middle", 50, 100, 50},
		{"end clamps to last", 100, 100, 99},
		{"beyond end", 250, 100, 99},
		{"negative", -3, 100, 0},
		{"single point", 73, 1, 0},
		{"single point at end", 100, 1, 0},
		{"three points half way", 50, 3, 1},
		{"empty path", 50, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexFor(tt.progress, tt.n))
		})
	}
}

func sampleDataset() *domain.YearDataset {
	return &domain.YearDataset{
		Year: 2025,
		SuperSections: []domain.SuperSection{{
			ID: "super-1",
			Coordinates: []domain.Coordinate{
				{Lat: 51.50, Lng: -0.15}, {Lat: 51.51, Lng: -0.15}, {Lat: 51.52, Lng: -0.15},
			},
		}},
		SubSections: []domain.SubSection{
			{ID: "a", ParentID: "super-1", Coordinates: [2]domain.Coordinate{{Lat: 51.50, Lng: -0.15}, {Lat: 51.505, Lng: -0.15}}},
			{ID: "b", ParentID: "super-1", Coordinates: [2]domain.Coordinate{{Lat: 51.505, Lng: -0.15}, {Lat: 51.51, Lng: -0.15}}},
		},
	}
}

func TestBuildPath(t *testing.T) {
	ds := sampleDataset()

	overview := BuildPath(ds, domain.VisibleLayers{SuperSections: true})
	assert.Equal(t, ds.SuperSections[0].Coordinates, overview)

	detail := BuildPath(ds, domain.VisibleLayers{SuperSections: true, Sections: true})
	require.Len(t, detail, 4)
	assert.Equal(t, domain.Coordinate{Lat: 51.505, Lng: -0.15}, detail[1])
	assert.Equal(t, domain.Coordinate{Lat: 51.51, Lng: -0.15}, detail[3])

	assert.Nil(t, BuildPath(nil, domain.VisibleLayers{SuperSections: true}))
}

func TestPathLengthKm(t *testing.T) {
	ds := sampleDataset()
	assert.InDelta(t, 2.22, PathLengthKm(ds.SuperSections[0].Coordinates), 0.02)
	assert.Zero(t, PathLengthKm(nil))
}

func TestEngineEndToEnd(t *testing.T) {
	var got []domain.Coordinate
	e := NewEngine(func(c domain.Coordinate) { got = append(got, c) })

	e.SetProgress(50)
	assert.Empty(t, got, "empty path withholds output")
	_, ok := e.Position()
	assert.False(t, ok)

	ds := sampleDataset()
	e.SetPath(BuildPath(ds, domain.VisibleLayers{SuperSections: true}))
	require.Len(t, got, 1)
	assert.Equal(t, ds.SuperSections[0].Coordinates[0], got[0], "first path emits its first coordinate")

	e.SetProgress(50)
	require.Len(t, got, 2)
	assert.Equal(t, ds.SuperSections[0].Coordinates[1], got[1])

	// same index, no re-emit
	e.SetProgress(60)
	assert.Len(t, got, 2)

	e.SetProgress(100)
	assert.Equal(t, ds.SuperSections[0].Coordinates[2], got[len(got)-1])
}

func TestEngineEmptyPathResets(t *testing.T) {
	var got []domain.Coordinate
	e := NewEngine(func(c domain.Coordinate) { got = append(got, c) })
	ds := sampleDataset()
	path := BuildPath(ds, domain.VisibleLayers{SuperSections: true})

	e.SetPath(path)
	e.SetPath(nil)
	_, ok := e.Position()
	assert.False(t, ok)

	e.SetProgress(100)
	e.SetPath(path)
	assert.Equal(t, path[0], got[len(got)-1])
	assert.Equal(t, 3, e.PathLen())
}

func TestEngineRetracksOnPathChange(t *testing.T) {
	var got []domain.Coordinate
	e := NewEngine(func(c domain.Coordinate) { got = append(got, c) })
	ds := sampleDataset()

	e.SetPath(BuildPath(ds, domain.VisibleLayers{SuperSections: true}))
	e.SetProgress(50)
	e.SetPath(BuildPath(ds, domain.VisibleLayers{SuperSections: true, Sections: true}))

	// floor(0.5*4) = 2
	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 51.505, Lng: -0.15}, pos)
}

func TestFollowerCoalescesToLatestTarget(t *testing.T) {
	var mu sync.Mutex
	var steps []domain.Coordinate
	f := NewFollower(FollowConfig{FrameInterval: time.Millisecond, Duration: 20 * time.Millisecond}, func(c domain.Coordinate, _ uint64) {
		mu.Lock()
		steps = append(steps, c)
		mu.Unlock()
	})
	f.Sync(domain.Coordinate{Lat: 51.50, Lng: -0.15})
	f.Start(context.Background())
	defer f.Stop()

	first := domain.Coordinate{Lat: 51.51, Lng: -0.15}
	last := domain.Coordinate{Lat: 51.52, Lng: -0.14}
	f.Follow(first)
	f.Follow(last)

	require.Eventually(t, func() bool {
		_, active := f.Target()
		return !active
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, steps)
	assert.Equal(t, last, steps[len(steps)-1])
	assert.Equal(t, 1, f.Superseded())
}

func TestFollowerStepsCarryGeneration(t *testing.T) {
	var mu sync.Mutex
	var gens []uint64
	f := NewFollower(FollowConfig{FrameInterval: time.Millisecond, Duration: 5 * time.Millisecond}, func(_ domain.Coordinate, gen uint64) {
		mu.Lock()
		gens = append(gens, gen)
		mu.Unlock()
	})
	assert.Zero(t, f.Generation())

	f.Sync(domain.Coordinate{Lat: 51.50, Lng: -0.15})
	assert.Equal(t, uint64(1), f.Generation())

	f.Start(context.Background())
	defer f.Stop()
	f.Follow(domain.Coordinate{Lat: 51.52, Lng: -0.14})

	require.Eventually(t, func() bool {
		_, active := f.Target()
		return !active
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	require.NotEmpty(t, gens)
	for _, g := range gens {
		assert.Equal(t, uint64(1), g)
	}
	mu.Unlock()

	// a sync ends the animation and starts a new generation
	f.Follow(domain.Coordinate{Lat: 51.53, Lng: -0.13})
	f.Sync(domain.Coordinate{Lat: 51.40, Lng: -0.20})
	_, active := f.Target()
	assert.False(t, active)
	assert.Equal(t, uint64(2), f.Generation())
}

func TestFollowerStopWithoutStart(t *testing.T) {
	f := NewFollower(FollowConfig{}, nil)
	assert.NotPanics(t, f.Stop)
	f.Follow(domain.Coordinate{Lat: 1, Lng: 1})
	target, active := f.Target()
	assert.True(t, active)
	assert.Equal(t, domain.Coordinate{Lat: 1, Lng: 1}, target)
}
