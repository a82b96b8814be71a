// Package render turns the visible part of a dataset into GeoJSON for the map.
package render

import (
	"github.com/paulmach/orb/geojson"

	"github.com/pavemap/backend/internal/association"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/pci"
)

// Layers builds a feature collection of every feature whose layer is visible.
// Distress points are colored with the condition of their associated
// section, looked up in distressConditions; missing entries use the default.
func Layers(ds *domain.YearDataset, layers domain.VisibleLayers, distressConditions map[string]float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if ds == nil {
		return fc
	}
	for _, f := range ds.Features() {
		if !layers.Includes(f.Kind()) {
			continue
		}
		if feat := Feature(ds, f, distressConditions); feat != nil {
			fc.Append(feat)
		}
	}
	return fc
}

// Feature converts one tagged entity to a GeoJSON feature with popup properties
func Feature(ds *domain.YearDataset, f domain.Feature, distressConditions map[string]float64) *geojson.Feature {
	var out *geojson.Feature

	switch v := f.(type) {
	case domain.SuperSection:
		out = geojson.NewFeature(domain.LineString(v.Coordinates))
		out.Properties["name"] = v.Name
		out.Properties["length_km"] = v.LengthKm
		out.Properties["traffic_volume"] = v.TrafficVolume
		out.Properties["category"] = string(v.Category)
		out.Properties["section_count"] = len(ds.SubSectionsOf(v.ID))
		setCondition(out, v.Condition)
		setDate(out, "last_inspected", v.LastInspected.Format("2006-01-02"), !v.LastInspected.IsZero())

	case domain.SubSection:
		out = geojson.NewFeature(domain.LineString(v.Coordinates[:]))
		out.Properties["parent_id"] = v.ParentID
		out.Properties["category"] = string(v.Category)
		if v.VideoURL != "" {
			out.Properties["video_url"] = v.VideoURL
		}
		setCondition(out, v.Condition)
		setDate(out, "last_inspected", v.LastInspected.Format("2006-01-02"), !v.LastInspected.IsZero())

	case domain.DistressPoint:
		out = geojson.NewFeature(v.Position.Point())
		out.Properties["type"] = string(v.Type)
		out.Properties["label"] = v.Type.Label()
		out.Properties["severity"] = v.Severity
		out.Properties["size"] = v.Size
		cond, ok := distressConditions[v.ID]
		if !ok {
			cond = association.DefaultCondition
		}
		setCondition(out, cond)
		setDate(out, "date_reported", v.ReportedAt.Format("2006-01-02"), !v.ReportedAt.IsZero())

	default:
		return nil
	}

	out.ID = f.FeatureID()
	out.Properties["id"] = f.FeatureID()
	out.Properties["kind"] = f.Kind().String()
	return out
}

func setCondition(f *geojson.Feature, c float64) {
	b := pci.BucketFor(c)
	f.Properties["condition"] = c
	f.Properties["color"] = string(b.Color)
	f.Properties["rating"] = string(b.Rating)
}

func setDate(f *geojson.Feature, key, value string, ok bool) {
	if ok {
		f.Properties[key] = value
	} else {
		f.Properties[key] = "N/A"
	}
}
