package domain

// Tier is the discrete zoom-derived detail level
type Tier int

const (
	TierOverview   Tier = 0 // super-sections only
	TierDetail     Tier = 1 // + 10m sections
	TierInspection Tier = 2 // + distress points
)

func (t Tier) String() string {
	switch t {
	case TierOverview:
		return "overview"
	case TierDetail:
		return "detail"
	case TierInspection:
		return "inspection"
	default:
		return "unknown"
	}
}

// VisibleLayers tells the renderer which geometry to draw
type VisibleLayers struct {
	SuperSections bool `json:"superSections"`
	Sections      bool `json:"sections"`
	Distress      bool `json:"distress"`
}

// Includes reports whether a feature kind is drawn under these layers
func (v VisibleLayers) Includes(k FeatureKind) bool {
	switch k {
	case KindSuperSection:
		return v.SuperSections
	case KindSubSection:
		return v.Sections
	case KindDistressPoint:
		return v.Distress
	default:
		return false
	}
}

// Years the dashboard offers in its year selector, latest first
var Years = []int{2025, 2024, 2023}

// LatestYear is selected when a session starts
const LatestYear = 2025

// KnownYear reports whether year is offered by the selector
func KnownYear(year int) bool {
	for _, y := range Years {
		if y == year {
			return true
		}
	}
	return false
}
