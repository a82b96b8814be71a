package viewport

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/pavemap/backend/internal/domain"
)

// MaxZoom is the deepest zoom the tile layer serves
const MaxZoom = 20

// Model is the server-side mirror of a browser map. It tracks the viewport
// the browser reports and forwards camera commands back to it.
type Model struct {
	state   domain.ViewportState
	autoFit bool

	onCommand func(domain.CameraTarget)
}

// NewModel creates a map mirror starting at the given viewport. With autoFit
// the model recenters on the dataset bounds whenever geometry is committed,
// like a map that fits its layers on load. The fit only moves the mirror; no
// camera command is sent for it.
func NewModel(initial domain.ViewportState, autoFit bool, onCommand func(domain.CameraTarget)) *Model {
	return &Model{state: initial, autoFit: autoFit, onCommand: onCommand}
}

// Viewport implements Surface
func (m *Model) Viewport() domain.ViewportState {
	return m.state
}

// Apply implements Surface
func (m *Model) Apply(target domain.CameraTarget) {
	m.state.Center = target.Center
	if target.Zoom != nil {
		m.state.Zoom = *target.Zoom
	}
	if m.onCommand != nil {
		m.onCommand(target)
	}
}

// Report records a viewport change made by the user in the browser
func (m *Model) Report(v domain.ViewportState) {
	m.state = v
}

// Commit is called when new geometry is handed to the renderer
func (m *Model) Commit(ds *domain.YearDataset) {
	if !m.autoFit || ds == nil {
		return
	}
	center, zoom, ok := FitBounds(ds)
	if !ok {
		return
	}
	m.state = domain.ViewportState{Center: center, Zoom: zoom}
}

// FitBounds returns a center and zoom that frame every super-section
func FitBounds(ds *domain.YearDataset) (domain.Coordinate, int, bool) {
	var mp orb.MultiPoint
	for _, s := range ds.SuperSections {
		for _, c := range s.Coordinates {
			mp = append(mp, c.Point())
		}
	}
	if len(mp) == 0 {
		return domain.Coordinate{}, 0, false
	}

	b := mp.Bound()
	span := math.Max(b.Max.Lon()-b.Min.Lon(), b.Max.Lat()-b.Min.Lat())
	zoom := MaxZoom
	if span > 0 {
		zoom = int(math.Floor(math.Log2(360 / span)))
	}
	zoom = max(0, min(MaxZoom, zoom))
	return domain.FromPoint(b.Center()), zoom, true
}
