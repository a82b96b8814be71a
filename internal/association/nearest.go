// Package association gives distress points the condition of the 10m section
// they sit on, so they can be colored like the road around them.
package association

import (
	"github.com/pavemap/backend/internal/domain"
)

const (
	// Tolerance is the half-width of the matching box in degrees (about 10m)
	Tolerance = 1e-4
	// DefaultCondition is used when no section matches ("Fair" midpoint)
	DefaultCondition = 50.0
)

// ConditionFor scans sections in order and returns the condition of the
// first one with a segment coordinate inside the tolerance box around the
// point. This is a coarse proximity test, not a nearest-neighbour search.
func ConditionFor(p domain.DistressPoint, sections []domain.SubSection) (float64, bool) {
	for _, s := range sections {
		for _, c := range s.Coordinates {
			if c.Near(p.Position, Tolerance) {
				return s.Condition, true
			}
		}
	}
	return DefaultCondition, false
}

// Associate resolves the condition of every point. Linear scan, O(n·m).
func Associate(points []domain.DistressPoint, sections []domain.SubSection) map[string]float64 {
	out := make(map[string]float64, len(points))
	for _, p := range points {
		out[p.ID], _ = ConditionFor(p, sections)
	}
	return out
}

// Cache memoizes associations per dataset year. It is recomputed only when
// the distress layer is enabled and the section set has changed.
type Cache struct {
	year       int
	valid      bool
	conditions map[string]float64
	misses     int
}

// Conditions returns the point conditions for ds, computing them if the
// cached set belongs to another dataset. It returns nil while distress
// display is disabled.
func (c *Cache) Conditions(ds *domain.YearDataset, enabled bool) map[string]float64 {
	if !enabled || ds == nil {
		return nil
	}
	if c.valid && c.year == ds.Year {
		return c.conditions
	}

	c.conditions = make(map[string]float64, len(ds.DistressPoints))
	c.misses = 0
	for _, p := range ds.DistressPoints {
		cond, ok := ConditionFor(p, ds.SubSections)
		if !ok {
			c.misses++
		}
		c.conditions[p.ID] = cond
	}
	c.year, c.valid = ds.Year, true
	return c.conditions
}

// Misses returns how many points fell back to the default condition on the
// last computation
func (c *Cache) Misses() int { return c.misses }

// Invalidate drops the memoized set
func (c *Cache) Invalidate() {
	c.valid = false
	c.conditions = nil
}
