package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category tags a road network entity by the kind of infrastructure it belongs to
type Category string

const (
	CategoryAirport Category = "airport"
	CategoryHighway Category = "highway"
)

// FeatureKind discriminates the three road network entity kinds
type FeatureKind int

const (
	KindSuperSection FeatureKind = iota
	KindSubSection
	KindDistressPoint
)

func (k FeatureKind) String() string {
	switch k {
	case KindSuperSection:
		return "super_section"
	case KindSubSection:
		return "section"
	case KindDistressPoint:
		return "distress"
	default:
		return "unknown"
	}
}

// Feature is implemented by every renderable road network entity
type Feature interface {
	FeatureID() string
	Kind() FeatureKind
}

// SuperSection is the coarsest road segment granularity
type SuperSection struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Coordinates   []Coordinate `json:"coordinates"`
	Condition     float64      `json:"condition"`
	LengthKm      float64      `json:"total_length_km"`
	TrafficVolume int          `json:"traffic_volume"`
	LastInspected time.Time    `json:"last_inspected"`
	Category      Category     `json:"category"`
}

func (s SuperSection) FeatureID() string { return s.ID }
func (s SuperSection) Kind() FeatureKind { return KindSuperSection }

// SubSection is a 10m section of a super-section.
// ParentID is a lookup key only.
type SubSection struct {
	ID            string        `json:"id"`
	ParentID      string        `json:"parent_id"`
	Coordinates   [2]Coordinate `json:"coordinates"`
	Condition     float64       `json:"condition"`
	LastInspected time.Time     `json:"last_inspected"`
	Category      Category      `json:"category"`
	VideoURL      string        `json:"video_url,omitempty"`
}

func (s SubSection) FeatureID() string { return s.ID }
func (s SubSection) Kind() FeatureKind { return KindSubSection }

// DistressType is the defect taxonomy of a distress point
type DistressType string

const (
	DistressPothole      DistressType = "pothole"
	DistressCrack        DistressType = "crack"
	DistressRutting      DistressType = "rutting"
	DistressRaveling     DistressType = "raveling"
	DistressBleeding     DistressType = "bleeding"
	DistressPatching     DistressType = "patching"
	DistressEdgeCracking DistressType = "edge_cracking"

	// Extended taxonomy for richer datasets
	DistressAlligatorCracking    DistressType = "alligator_cracking"
	DistressBlockCracking        DistressType = "block_cracking"
	DistressTransverseCracking   DistressType = "transverse_cracking"
	DistressLongitudinalCracking DistressType = "longitudinal_cracking"
	DistressShoving              DistressType = "shoving"
	DistressDepression           DistressType = "depression"
	DistressPolishedAggregate    DistressType = "polished_aggregate"
)

// BasicDistressTypes is the taxonomy produced by the standard survey
var BasicDistressTypes = []DistressType{
	DistressPothole, DistressCrack, DistressRutting, DistressRaveling,
	DistressBleeding, DistressPatching, DistressEdgeCracking,
}

// ExtendedDistressTypes adds the richer taxonomy on top of the basic one
var ExtendedDistressTypes = append(append([]DistressType{}, BasicDistressTypes...),
	DistressAlligatorCracking, DistressBlockCracking, DistressTransverseCracking,
	DistressLongitudinalCracking, DistressShoving, DistressDepression, DistressPolishedAggregate,
)

// Label returns the human readable name, e.g. "Edge cracking"
func (t DistressType) Label() string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DistressPoint is a localized pavement defect
type DistressPoint struct {
	ID         string       `json:"id"`
	Position   Coordinate   `json:"position"`
	Type       DistressType `json:"type"`
	Severity   int          `json:"severity"`
	Size       float64      `json:"size"`
	ReportedAt time.Time    `json:"date_reported"`
}

func (d DistressPoint) FeatureID() string { return d.ID }
func (d DistressPoint) Kind() FeatureKind { return KindDistressPoint }

// YearDataset is the complete road network survey for one calendar year.
// Datasets are replaced wholesale, never mutated.
type YearDataset struct {
	Year           int             `json:"year"`
	SuperSections  []SuperSection  `json:"super_sections"`
	SubSections    []SubSection    `json:"sections"`
	DistressPoints []DistressPoint `json:"distress_points"`
}

// SubSectionsOf returns the ordered sub-sections of one super-section
func (d *YearDataset) SubSectionsOf(parentID string) []SubSection {
	var out []SubSection
	for _, s := range d.SubSections {
		if s.ParentID == parentID {
			out = append(out, s)
		}
	}
	return out
}

// SuperSection looks up a super-section by id
func (d *YearDataset) SuperSection(id string) (SuperSection, bool) {
	for _, s := range d.SuperSections {
		if s.ID == id {
			return s, true
		}
	}
	return SuperSection{}, false
}

// Features flattens the dataset into its tagged variants
func (d *YearDataset) Features() []Feature {
	out := make([]Feature, 0, len(d.SuperSections)+len(d.SubSections)+len(d.DistressPoints))
	for _, s := range d.SuperSections {
		out = append(out, s)
	}
	for _, s := range d.SubSections {
		out = append(out, s)
	}
	for _, p := range d.DistressPoints {
		out = append(out, p)
	}
	return out
}

// chainTolerance bounds endpoint drift between consecutive sub-sections
const chainTolerance = 1e-9

// Validate checks the dataset invariants
func (d *YearDataset) Validate() error {
	parents := make(map[string]bool, len(d.SuperSections))
	for _, s := range d.SuperSections {
		if len(s.Coordinates) < 2 {
			return fmt.Errorf("domain: super-section %s has %d coordinates", s.ID, len(s.Coordinates))
		}
		if !validCondition(s.Condition) {
			return fmt.Errorf("domain: super-section %s condition %v out of range", s.ID, s.Condition)
		}
		parents[s.ID] = true
	}

	last := make(map[string]Coordinate)
	for _, s := range d.SubSections {
		if !parents[s.ParentID] {
			return fmt.Errorf("domain: section %s references unknown parent %q", s.ID, s.ParentID)
		}
		if !validCondition(s.Condition) {
			return fmt.Errorf("domain: section %s condition %v out of range", s.ID, s.Condition)
		}
		if end, ok := last[s.ParentID]; ok && !end.Near(s.Coordinates[0], chainTolerance) {
			return fmt.Errorf("domain: section %s does not continue the path of %s", s.ID, s.ParentID)
		}
		last[s.ParentID] = s.Coordinates[1]
	}

	for _, p := range d.DistressPoints {
		if p.Severity < 1 || p.Severity > 5 {
			return fmt.Errorf("domain: distress %s severity %d out of range", p.ID, p.Severity)
		}
	}
	return nil
}

func validCondition(c float64) bool {
	return c >= 0 && c <= 100
}

// ClampCondition forces a condition score into [0, 100]
func ClampCondition(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}
