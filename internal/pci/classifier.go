// Package pci maps Pavement Condition Index scores to severity buckets and display colors.
package pci

import (
	"math"

	"github.com/pavemap/backend/pkg/utils"
)

// Color is a CSS hex color
type Color string

const (
	Red        Color = "#FF0000"
	DarkOrange Color = "#FF8C00"
	Yellow     Color = "#FFFF00"
	LightGreen Color = "#57C018"
	DarkGreen  Color = "#006400"
)

// Rating is the human-readable condition bucket
type Rating string

const (
	VeryPoor  Rating = "Very Poor"
	Poor      Rating = "Poor"
	Fair      Rating = "Fair"
	Good      Rating = "Good"
	Excellent Rating = "Excellent"
)

// Bucket is one entry of the condition scale
type Bucket struct {
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Color  Color  `json:"color"`
	Rating Rating `json:"rating"`
}

// ascending, inclusive, first match wins
var buckets = [...]Bucket{
	{Min: 0, Max: 20, Color: Red, Rating: VeryPoor},
	{Min: 21, Max: 40, Color: DarkOrange, Rating: Poor},
	{Min: 41, Max: 60, Color: Yellow, Rating: Fair},
	{Min: 61, Max: 80, Color: LightGreen, Rating: Good},
	{Min: 81, Max: 100, Color: DarkGreen, Rating: Excellent},
}

// BucketFor returns the bucket of a score. Scores are clamped to [0,100]
// and rounded first, so the function is total.
func BucketFor(score float64) Bucket {
	s := int(math.Round(utils.Clamp(score, 0, 100)))
	for _, b := range buckets {
		if s <= b.Max {
			return b
		}
	}
	return buckets[len(buckets)-1]
}

// ColorFor returns the display color of a condition score
func ColorFor(score float64) Color {
	return BucketFor(score).Color
}

// RatingFor returns the rating label of a condition score
func RatingFor(score float64) Rating {
	return BucketFor(score).Rating
}

// Legend returns the condition scale, best condition first
func Legend() []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for i := len(buckets) - 1; i >= 0; i-- {
		out = append(out, buckets[i])
	}
	return out
}
