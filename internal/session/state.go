package session

import (
	"github.com/pavemap/backend/internal/domain"
)

// Toggles are the drawer switches
type Toggles struct {
	Distress bool `json:"distress"`
	Video    bool `json:"video"`
	Images   bool `json:"images"`
}

// Playback mirrors the media element
type Playback struct {
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration_seconds"`
	Playing  bool    `json:"playing"`
}

// State is an immutable snapshot of one dashboard session.
// Reducers and the loop always build a new value; nothing mutates a State
// after it has been published.
type State struct {
	Year     int                  `json:"year"`
	Zoom     float64              `json:"zoom"`
	Tier     domain.Tier          `json:"tier"`
	Layers   domain.VisibleLayers `json:"visible_layers"`
	Toggles  Toggles              `json:"toggles"`
	Playback Playback             `json:"playback"`
	Viewport domain.ViewportState `json:"viewport"`
	Tracked  *domain.Coordinate   `json:"tracked_position"`
	PathLen  int                  `json:"path_length"`
}

// InitialState is the state of a freshly opened dashboard
func InitialState() State {
	vp := domain.DefaultViewport()
	return State{
		Year:     domain.LatestYear,
		Zoom:     float64(vp.Zoom),
		Toggles:  Toggles{Distress: true},
		Viewport: vp,
	}
}

func (s State) withTier(t domain.Tier) State {
	s.Tier = t
	return s
}

func (s State) withLayers(l domain.VisibleLayers) State {
	s.Layers = l
	return s
}

func (s State) withTracked(c *domain.Coordinate, pathLen int) State {
	if c != nil {
		pos := *c
		c = &pos
	}
	s.Tracked = c
	s.PathLen = pathLen
	return s
}

func (s State) withViewport(v domain.ViewportState) State {
	s.Viewport = v
	return s
}

// effectiveLayers applies the distress switch on top of the tier visibility
func effectiveLayers(tierLayers domain.VisibleLayers, t Toggles) domain.VisibleLayers {
	tierLayers.Distress = tierLayers.Distress && t.Distress
	return tierLayers
}
