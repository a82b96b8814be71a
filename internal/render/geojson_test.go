package render

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/pci"
)

func dataset() *domain.YearDataset {
	return &domain.YearDataset{
		Year: 2025,
		SuperSections: []domain.SuperSection{{
			ID:            "super-h-0",
			Name:          "East-West Highway 1",
			Coordinates:   []domain.Coordinate{{Lat: 51.5, Lng: -0.15}, {Lat: 51.5, Lng: -0.14}},
			Condition:     85,
			LengthKm:      0.69,
			TrafficVolume: 12000,
			LastInspected: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		}},
		SubSections: []domain.SubSection{{
			ID:          "super-h-0-section-0-0",
			ParentID:    "super-h-0",
			Coordinates: [2]domain.Coordinate{{Lat: 51.5, Lng: -0.15}, {Lat: 51.5, Lng: -0.149}},
			Condition:   10,
		}},
		DistressPoints: []domain.DistressPoint{
			{ID: "d-1", Position: domain.Coordinate{Lat: 51.5, Lng: -0.1495}, Type: domain.DistressEdgeCracking, Severity: 4},
			{ID: "d-2", Position: domain.Coordinate{Lat: 51.5, Lng: -0.1491}, Type: domain.DistressPothole, Severity: 1},
		},
	}
}

func TestLayersRespectsVisibility(t *testing.T) {
	ds := dataset()

	fc := Layers(ds, domain.VisibleLayers{SuperSections: true}, nil)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "super_section", fc.Features[0].Properties["kind"])

	fc = Layers(ds, domain.VisibleLayers{SuperSections: true, Sections: true, Distress: true}, nil)
	assert.Len(t, fc.Features, 4)

	assert.Empty(t, Layers(nil, domain.VisibleLayers{SuperSections: true}, nil).Features)
}

func TestFeatureProperties(t *testing.T) {
	ds := dataset()
	fc := Layers(ds, domain.VisibleLayers{SuperSections: true, Sections: true, Distress: true},
		map[string]float64{"d-1": 10})

	super := fc.Features[0]
	assert.Equal(t, "super-h-0", super.ID)
	assert.Equal(t, string(pci.DarkGreen), super.Properties["color"])
	assert.Equal(t, "Excellent", super.Properties["rating"])
	assert.Equal(t, "2025-03-02", super.Properties["last_inspected"])
	assert.Equal(t, 1, super.Properties["section_count"])
	_, isLine := super.Geometry.(orb.LineString)
	assert.True(t, isLine)

	section := fc.Features[1]
	assert.Equal(t, "N/A", section.Properties["last_inspected"])
	assert.Equal(t, string(pci.Red), section.Properties["color"])

	associated := fc.Features[2]
	assert.Equal(t, "Edge cracking", associated.Properties["label"])
	assert.Equal(t, string(pci.Red), associated.Properties["color"])
	assert.Equal(t, orb.Point{-0.1495, 51.5}, associated.Geometry)

	fallback := fc.Features[3]
	assert.Equal(t, 50.0, fallback.Properties["condition"])
	assert.Equal(t, string(pci.Yellow), fallback.Properties["color"])
}

func TestLayersMarshalsAsGeoJSON(t *testing.T) {
	raw, err := json.Marshal(Layers(dataset(), domain.VisibleLayers{SuperSections: true}, nil))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"FeatureCollection"`)
	assert.Contains(t, string(raw), `"type":"LineString"`)
}
