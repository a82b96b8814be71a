// Package tier resolves the map zoom level into a detail tier and the layers it shows.
package tier

import (
	"fmt"
	"strings"

	"github.com/pavemap/backend/internal/domain"
)

// Zoom thresholds of the canonical resolver
const (
	DetailZoom     = 13
	InspectionZoom = 15
)

// Mode selects the resolver variant
type Mode int

const (
	// ThreeTier is the canonical resolver: overview, detail, inspection
	ThreeTier Mode = iota
	// TwoTier merges detail and inspection at zoom 13
	TwoTier
)

// ParseMode reads a mode name as used in configuration
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "three", "3":
		return ThreeTier, nil
	case "two", "2":
		return TwoTier, nil
	default:
		return ThreeTier, fmt.Errorf("tier: unknown mode %q", s)
	}
}

func (m Mode) String() string {
	if m == TwoTier {
		return "two"
	}
	return "three"
}

// TierFor maps a zoom level to its tier. Comparisons are total, so negative
// or very large zoom values need no validation. NaN resolves to overview.
func TierFor(zoom float64, mode Mode) domain.Tier {
	switch {
	case zoom >= InspectionZoom && mode == ThreeTier:
		return domain.TierInspection
	case zoom >= DetailZoom:
		return domain.TierDetail
	default:
		return domain.TierOverview
	}
}

// LayersFor returns the visibility set of a tier
func LayersFor(t domain.Tier, mode Mode) domain.VisibleLayers {
	switch {
	case t >= domain.TierInspection:
		return domain.VisibleLayers{SuperSections: true, Sections: true, Distress: true}
	case t == domain.TierDetail:
		return domain.VisibleLayers{SuperSections: true, Sections: true, Distress: mode == TwoTier}
	default:
		return domain.VisibleLayers{SuperSections: true}
	}
}

// Resolver emits tier transitions to the renderer and to the zoom listener.
// It is not safe for concurrent use; it belongs to one session loop.
type Resolver struct {
	mode     Mode
	last     domain.Tier
	observed bool

	onLayers     func(domain.VisibleLayers)
	onZoomChange func(int)
}

// NewResolver creates a resolver. Either callback may be nil.
func NewResolver(mode Mode, onLayers func(domain.VisibleLayers), onZoomChange func(int)) *Resolver {
	return &Resolver{mode: mode, onLayers: onLayers, onZoomChange: onZoomChange}
}

// Mode returns the resolver variant
func (r *Resolver) Mode() Mode { return r.mode }

// Current returns the last emitted tier and its layers
func (r *Resolver) Current() (domain.Tier, domain.VisibleLayers) {
	return r.last, LayersFor(r.last, r.mode)
}

// Observe handles a zoom notification. The tier is recomputed from scratch;
// listeners are notified only when it differs from the last emitted tier.
func (r *Resolver) Observe(zoom float64) (domain.Tier, bool) {
	t := TierFor(zoom, r.mode)
	if r.observed && t == r.last {
		return t, false
	}
	r.observed = true
	r.last = t

	if r.onLayers != nil {
		r.onLayers(LayersFor(t, r.mode))
	}
	if r.onZoomChange != nil {
		r.onZoomChange(int(t))
	}
	return t, true
}
