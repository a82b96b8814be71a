package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/stat"

	"github.com/pavemap/backend/internal/association"
	"github.com/pavemap/backend/internal/dataset"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/log"
	"github.com/pavemap/backend/internal/metrics"
	"github.com/pavemap/backend/internal/pci"
	"github.com/pavemap/backend/internal/render"
	"github.com/pavemap/backend/internal/tier"
)

// DatasetService resolves yearly datasets through memory, cache, repository
// and finally the generator. Loaded datasets are immutable and shared.
type DatasetService struct {
	gen   *dataset.Generator
	repo  DatasetRepository
	cache DatasetCache
	mode  tier.Mode

	loadMu sync.Mutex
	mu     sync.RWMutex
	loaded map[int]*domain.YearDataset

	wgBg sync.WaitGroup // tracks background writes for graceful shutdown
}

// NewDatasetService creates a new dataset service. cache may be nil.
func NewDatasetService(gen *dataset.Generator, repo DatasetRepository, cache DatasetCache, mode tier.Mode) *DatasetService {
	return &DatasetService{
		gen:    gen,
		repo:   repo,
		cache:  cache,
		mode:   mode,
		loaded: make(map[int]*domain.YearDataset),
	}
}

// WaitBackground blocks until all background writes complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *DatasetService) WaitBackground() {
	s.wgBg.Wait()
}

// Preload loads every offered year concurrently
func (s *DatasetService) Preload(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, year := range domain.Years {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			if _, err := s.Dataset(ctx, year); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(year)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Dataset implements session.DatasetSource
func (s *DatasetService) Dataset(ctx context.Context, year int) (*domain.YearDataset, error) {
	if !domain.KnownYear(year) {
		return nil, fmt.Errorf("%w: %d", dataset.ErrUnknownYear, year)
	}
	if ds := s.memory(year); ds != nil {
		return ds, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if ds := s.memory(year); ds != nil {
		return ds, nil
	}

	ds, err := s.load(ctx, year)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.loaded[year] = ds
	s.mu.Unlock()
	return ds, nil
}

func (s *DatasetService) memory(year int) *domain.YearDataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[year]
}

func (s *DatasetService) load(ctx context.Context, year int) (*domain.YearDataset, error) {
	if s.cache != nil {
		start := time.Now()
		ds, ok, err := s.cache.Get(ctx, year)
		if err != nil {
			log.Warnw("dataset cache read failed", "year", year, "error", err)
		} else if ok {
			observe("cache", start)
			return &ds, nil
		}
	}

	start := time.Now()
	ds, err := s.repo.LoadDataset(ctx, year)
	switch {
	case err == nil:
		observe("repository", start)
		s.background(func(ctx context.Context) { s.writeCache(ctx, ds) })
		return &ds, nil
	case !errors.Is(err, domain.ErrDatasetNotFound):
		log.Warnw("dataset repository read failed, regenerating", "year", year, "error", err)
	}

	start = time.Now()
	ds, err = s.gen.Generate(year)
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate dataset %d: %w", year, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("service: generated dataset %d is invalid: %w", year, err)
	}
	observe("generator", start)
	log.Infow("dataset generated", "year", year,
		"super_sections", len(ds.SuperSections),
		"sections", len(ds.SubSections),
		"distress_points", len(ds.DistressPoints))

	s.background(func(ctx context.Context) {
		if err := s.repo.SaveDataset(ctx, ds); err != nil {
			log.Warnw("failed to save dataset", "year", year, "error", err)
		}
		s.writeCache(ctx, ds)
	})
	return &ds, nil
}

func (s *DatasetService) writeCache(ctx context.Context, ds domain.YearDataset) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, ds); err != nil {
		log.Warnw("failed to cache dataset", "year", ds.Year, "error", err)
	}
}

// background runs a persistence write off the request path
func (s *DatasetService) background(fn func(ctx context.Context)) {
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func observe(source string, start time.Time) {
	metrics.DatasetLoadMs.WithLabelValues(source).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// YearInfo is one entry of the year selector
type YearInfo struct {
	Year   int  `json:"year"`
	Latest bool `json:"latest"`
}

// Years lists the selectable years, latest first
func (s *DatasetService) Years() []YearInfo {
	out := make([]YearInfo, 0, len(domain.Years))
	for _, y := range domain.Years {
		out = append(out, YearInfo{Year: y, Latest: y == domain.LatestYear})
	}
	return out
}

// Legend returns the condition scale, best first
func (s *DatasetService) Legend() []pci.Bucket {
	return pci.Legend()
}

// SectionSummary is the metadata card of one super-section
type SectionSummary struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         domain.Category `json:"category"`
	LengthKm         float64         `json:"total_length_km"`
	TrafficVolume    int             `json:"traffic_volume"`
	AverageCondition float64         `json:"average_condition"`
	Color            pci.Color       `json:"color"`
	Rating           pci.Rating      `json:"rating"`
	LastMaintenance  string          `json:"last_maintenance"`
	SectionCount     int             `json:"section_count"`
}

// DatasetSummary describes a whole year
type DatasetSummary struct {
	Year             int              `json:"year"`
	AverageCondition float64          `json:"average_condition"`
	Rating           pci.Rating       `json:"rating"`
	TotalLengthKm    float64          `json:"total_length_km"`
	DistressPoints   int              `json:"distress_points"`
	Sections         []SectionSummary `json:"super_sections"`
}

// Summary returns per super-section metadata for a year. The network
// average is weighted by route length.
func (s *DatasetService) Summary(ctx context.Context, year int) (DatasetSummary, error) {
	ds, err := s.Dataset(ctx, year)
	if err != nil {
		return DatasetSummary{}, err
	}

	out := DatasetSummary{Year: ds.Year, DistressPoints: len(ds.DistressPoints)}
	conds := make([]float64, 0, len(ds.SuperSections))
	lengths := make([]float64, 0, len(ds.SuperSections))

	for _, sup := range ds.SuperSections {
		b := pci.BucketFor(sup.Condition)
		last := "N/A"
		if !sup.LastInspected.IsZero() {
			last = sup.LastInspected.Format("2006-01-02")
		}
		out.Sections = append(out.Sections, SectionSummary{
			ID:               sup.ID,
			Name:             sup.Name,
			Category:         sup.Category,
			LengthKm:         sup.LengthKm,
			TrafficVolume:    sup.TrafficVolume,
			AverageCondition: sup.Condition,
			Color:            b.Color,
			Rating:           b.Rating,
			LastMaintenance:  last,
			SectionCount:     len(ds.SubSectionsOf(sup.ID)),
		})
		conds = append(conds, sup.Condition)
		lengths = append(lengths, sup.LengthKm)
		out.TotalLengthKm += sup.LengthKm
	}

	if len(conds) > 0 && out.TotalLengthKm > 0 {
		out.AverageCondition = stat.Mean(conds, lengths)
	} else if len(conds) > 0 {
		out.AverageCondition = stat.Mean(conds, nil)
	}
	out.Rating = pci.RatingFor(out.AverageCondition)
	return out, nil
}

// GeometryQuery selects the stateless geometry of a year
type GeometryQuery struct {
	Zoom     float64
	Distress bool
	Range    dataset.TimeRange
	Date     string // anchor of the range window, YYYY-MM-DD
}

// Geometry renders the layers visible at a zoom level, optionally narrowed
// to an inspection date window
func (s *DatasetService) Geometry(ctx context.Context, year int, q GeometryQuery) (*geojson.FeatureCollection, error) {
	ds, err := s.Dataset(ctx, year)
	if err != nil {
		return nil, err
	}

	layers := tier.LayersFor(tier.TierFor(q.Zoom, s.mode), s.mode)
	layers.Distress = layers.Distress && q.Distress

	filtered := dataset.Filter(*ds, dataset.WindowFor(q.Range, q.Date))
	var conds map[string]float64
	if layers.Distress {
		conds = association.Associate(filtered.DistressPoints, ds.SubSections)
	}
	return render.Layers(&filtered, layers, conds), nil
}

// Health checks the repository
func (s *DatasetService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
