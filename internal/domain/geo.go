package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the coordinate to an orb point (lng, lat order)
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Near reports whether other lies strictly inside a tolerance box around c
func (c Coordinate) Near(other Coordinate, tol float64) bool {
	return math.Abs(c.Lat-other.Lat) < tol && math.Abs(c.Lng-other.Lng) < tol
}

// FromPoint converts an orb point back to a coordinate
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// LineString converts an ordered coordinate slice to an orb line string
func LineString(coords []Coordinate) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = c.Point()
	}
	return ls
}

// ViewportState is the map camera as seen by the user
type ViewportState struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

// CameraTarget is a viewport command for the map surface.
// A nil Zoom leaves the current zoom untouched.
type CameraTarget struct {
	Center  Coordinate `json:"center"`
	Zoom    *int       `json:"zoom,omitempty"`
	Animate bool       `json:"animate"`
}

// Map center used by the dashboard when no viewport has been reported yet
const (
	DefaultCenterLat = 51.4700
	DefaultCenterLng = -0.4500
	DefaultZoom      = 13
)

// DefaultViewport returns the initial dashboard viewport
func DefaultViewport() ViewportState {
	return ViewportState{
		Center: Coordinate{Lat: DefaultCenterLat, Lng: DefaultCenterLng},
		Zoom:   DefaultZoom,
	}
}
