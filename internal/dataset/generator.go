// Package dataset fabricates the synthetic yearly road surveys served by the dashboard.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pavemap/backend/internal/association"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/pkg/utils"
)

// ErrUnknownYear is returned for years the dashboard does not offer
var ErrUnknownYear = errors.New("dataset: unknown year")

const (
	sectionsPerSpan  = 10 // 10m sections between two route vertices
	distressPerSpan  = 3  // distress points per 10m section
	gridOriginLat    = 51.5
	gridOriginLng    = -0.15
	gridSize         = 5
	gridSpacing      = 0.01
	videoURLTemplate = "https://example.com/videos/%s/section-%d-%d.mp4"
)

// Options control dataset generation
type Options struct {
	Seed     int64 // combined with the year so every year differs but is reproducible
	Extended bool  // use the extended distress taxonomy
}

// Generator builds deterministic synthetic datasets
type Generator struct {
	opts Options
}

// NewGenerator creates a new generator
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

type route struct {
	id       string
	name     string
	category domain.Category
	coords   []domain.Coordinate
}

// Generate builds the dataset for one year
func (g *Generator) Generate(year int) (domain.YearDataset, error) {
	if !domain.KnownYear(year) {
		return domain.YearDataset{}, fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	rng := rand.New(rand.NewSource(g.opts.Seed*10000 + int64(year)))

	types := domain.BasicDistressTypes
	if g.opts.Extended {
		types = domain.ExtendedDistressTypes
	}

	ds := domain.YearDataset{Year: year}
	for _, r := range routes() {
		subs := g.sections(rng, year, r)
		points := g.distress(rng, year, subs, types)

		conditions := make([]float64, len(subs))
		var inspected time.Time
		for i, s := range subs {
			conditions[i] = s.Condition
			if s.LastInspected.After(inspected) {
				inspected = s.LastInspected
			}
		}

		ds.SuperSections = append(ds.SuperSections, domain.SuperSection{
			ID:            r.id,
			Name:          r.name,
			Coordinates:   r.coords,
			Condition:     domain.ClampCondition(math.Round(stat.Mean(conditions, nil))),
			LengthKm:      utils.RoundTo(routeLengthKm(r.coords), 2),
			TrafficVolume: rng.Intn(50000) + 10000,
			LastInspected: inspected,
			Category:      r.category,
		})
		ds.SubSections = append(ds.SubSections, subs...)
		ds.DistressPoints = append(ds.DistressPoints, points...)
	}
	return ds, nil
}

// sections splits every span of a route into 10m sections
func (g *Generator) sections(rng *rand.Rand, year int, r route) []domain.SubSection {
	var out []domain.SubSection
	for i := 0; i < len(r.coords)-1; i++ {
		start, end := r.coords[i], r.coords[i+1]
		for j := 0; j < sectionsPerSpan; j++ {
			out = append(out, domain.SubSection{
				ID:       fmt.Sprintf("%s-section-%d-%d", r.id, i, j),
				ParentID: r.id,
				Coordinates: [2]domain.Coordinate{
					interpolate(start, end, float64(j)/sectionsPerSpan),
					interpolate(start, end, float64(j+1)/sectionsPerSpan),
				},
				Condition:     float64(rng.Intn(100)),
				LastInspected: randomDate(rng, year),
				Category:      r.category,
				VideoURL:      fmt.Sprintf(videoURLTemplate, r.id, i, j),
			})
		}
	}
	return out
}

// distress scatters defects along each section, each one close enough to a
// section vertex to be associated with a surveyed condition
func (g *Generator) distress(rng *rand.Rand, year int, subs []domain.SubSection, types []domain.DistressType) []domain.DistressPoint {
	var out []domain.DistressPoint
	for _, s := range subs {
		offsets := make([]float64, distressPerSpan)
		for i := range offsets {
			offsets[i] = nearVertex(rng, s.Coordinates[0], s.Coordinates[1])
		}
		sort.Float64s(offsets)

		for i, t := range offsets {
			out = append(out, domain.DistressPoint{
				ID:         fmt.Sprintf("distress-%s-%d", s.ID, i),
				Position:   interpolate(s.Coordinates[0], s.Coordinates[1], t),
				Type:       types[rng.Intn(len(types))],
				Severity:   rng.Intn(5) + 1,
				Size:       float64(rng.Intn(100) + 20),
				ReportedAt: randomDate(rng, year),
			})
		}
	}
	return out
}

// routes returns the surveyed network: a 5x5 street grid, a diagonal
// express route and the two runways of the airport
func routes() []route {
	grid := make([][]domain.Coordinate, gridSize)
	for i := range grid {
		grid[i] = make([]domain.Coordinate, gridSize)
		for j := range grid[i] {
			grid[i][j] = domain.Coordinate{
				Lat: gridOriginLat + float64(i)*gridSpacing,
				Lng: gridOriginLng + float64(j)*gridSpacing,
			}
		}
	}

	var out []route
	for i := 0; i < gridSize; i++ {
		out = append(out, route{
			id:       fmt.Sprintf("super-h-%d", i),
			name:     fmt.Sprintf("East-West Highway %d", i+1),
			category: domain.CategoryHighway,
			coords:   grid[i],
		})
	}
	for j := 0; j < gridSize; j++ {
		col := make([]domain.Coordinate, gridSize)
		for i := 0; i < gridSize; i++ {
			col[i] = grid[i][j]
		}
		out = append(out, route{
			id:       fmt.Sprintf("super-v-%d", j),
			name:     fmt.Sprintf("North-South Route %d", j+1),
			category: domain.CategoryHighway,
			coords:   col,
		})
	}

	diagonal := make([]domain.Coordinate, gridSize)
	for i := range diagonal {
		diagonal[i] = domain.Coordinate{Lat: gridOriginLat + float64(i)*gridSpacing, Lng: gridOriginLng + float64(i)*gridSpacing}
	}
	out = append(out,
		route{id: "super-d-1", name: "Diagonal Express 1", category: domain.CategoryHighway, coords: diagonal},
		route{id: "runway-09l-27r", name: "Runway 09L/27R", category: domain.CategoryAirport,
			coords: line(domain.Coordinate{Lat: 51.4775, Lng: -0.4850}, domain.Coordinate{Lat: 51.4775, Lng: -0.4330}, 4)},
		route{id: "runway-09r-27l", name: "Runway 09R/27L", category: domain.CategoryAirport,
			coords: line(domain.Coordinate{Lat: 51.4647, Lng: -0.4823}, domain.Coordinate{Lat: 51.4647, Lng: -0.4340}, 4)},
	)
	return out
}

// line returns count+1 evenly spaced points from start to end
func line(start, end domain.Coordinate, count int) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, count+1)
	for i := 0; i <= count; i++ {
		out = append(out, interpolate(start, end, float64(i)/float64(count)))
	}
	return out
}

// nearVertex returns an offset along a-b that lands within the association
// box of a or b
func nearVertex(rng *rand.Rand, a, b domain.Coordinate) float64 {
	span := math.Max(math.Abs(b.Lat-a.Lat), math.Abs(b.Lng-a.Lng))
	if span == 0 {
		return 0
	}
	reach := math.Min(0.5, 0.8*association.Tolerance/span)
	t := rng.Float64() * reach
	if rng.Intn(2) == 1 {
		t = 1 - t
	}
	return t
}

func interpolate(a, b domain.Coordinate, t float64) domain.Coordinate {
	return domain.Coordinate{Lat: utils.Lerp(a.Lat, b.Lat, t), Lng: utils.Lerp(a.Lng, b.Lng, t)}
}

func routeLengthKm(coords []domain.Coordinate) float64 {
	var km float64
	for i := 1; i < len(coords); i++ {
		km += utils.Haversine(coords[i-1].Lat, coords[i-1].Lng, coords[i].Lat, coords[i].Lng)
	}
	return km
}

func randomDate(rng *rand.Rand, year int) time.Time {
	return time.Date(year, time.Month(rng.Intn(12)+1), rng.Intn(28)+1, 0, 0, 0, 0, time.UTC)
}
