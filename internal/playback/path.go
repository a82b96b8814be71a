// Package playback maps video playback progress onto the inspected road path
// and keeps the map camera following the tracked vehicle.
package playback

import (
	"math"

	"github.com/paulmach/orb/geo"

	"github.com/pavemap/backend/internal/domain"
)

// BuildPath concatenates, in dataset order, the coordinates of the finest
// linear layer currently visible: every 10m section when sections are shown,
// every super-section otherwise.
func BuildPath(ds *domain.YearDataset, layers domain.VisibleLayers) []domain.Coordinate {
	if ds == nil {
		return nil
	}
	if layers.Sections {
		path := make([]domain.Coordinate, 0, 2*len(ds.SubSections))
		for _, s := range ds.SubSections {
			path = append(path, s.Coordinates[0], s.Coordinates[1])
		}
		return path
	}

	var path []domain.Coordinate
	for _, s := range ds.SuperSections {
		path = append(path, s.Coordinates...)
	}
	return path
}

// IndexFor maps progress in percent onto a path of n points:
// min(floor(p/100*n), n-1), clamped at both ends. It returns -1 for an
// empty path.
func IndexFor(progress float64, n int) int {
	if n <= 0 {
		return -1
	}
	if math.IsNaN(progress) || progress <= 0 {
		return 0
	}
	if progress >= 100 {
		return n - 1
	}
	idx := int(math.Floor(progress / 100 * float64(n)))
	return min(idx, n-1)
}

// PathLengthKm returns the geodesic length of a path
func PathLengthKm(path []domain.Coordinate) float64 {
	if len(path) < 2 {
		return 0
	}
	return geo.LengthHaversine(domain.LineString(path)) / 1000
}
