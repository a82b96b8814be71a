package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/pavemap/backend/internal/domain"
)

// TimeRange is the granularity of the timeline control
type TimeRange string

const (
	RangeYear    TimeRange = "year"
	RangeQuarter TimeRange = "quarter"
	RangeMonth   TimeRange = "month"
)

// ParseRange reads a timeline range name; empty means the whole year
func ParseRange(s string) (TimeRange, error) {
	switch TimeRange(strings.ToLower(strings.TrimSpace(s))) {
	case "", RangeYear:
		return RangeYear, nil
	case RangeQuarter:
		return RangeQuarter, nil
	case RangeMonth:
		return RangeMonth, nil
	default:
		return RangeYear, fmt.Errorf("dataset: unknown time range %q", s)
	}
}

// Window is a half-open [From, To) date interval. The zero Window matches everything.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowFor returns the window of the given range that contains anchor.
// A malformed anchor yields the zero window so that nothing is excluded.
func WindowFor(r TimeRange, anchor string) Window {
	if anchor == "" {
		return Window{}
	}
	at, err := time.Parse("2006-01-02", anchor)
	if err != nil {
		return Window{}
	}

	switch r {
	case RangeMonth:
		from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{From: from, To: from.AddDate(0, 1, 0)}
	case RangeQuarter:
		q := (int(at.Month()) - 1) / 3
		from := time.Date(at.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Window{From: from, To: from.AddDate(0, 3, 0)}
	default:
		from := time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Window{From: from, To: from.AddDate(1, 0, 0)}
	}
}

// Contains reports whether t falls in the window. Zero dates always pass.
func (w Window) Contains(t time.Time) bool {
	if w.From.IsZero() || t.IsZero() {
		return true
	}
	return !t.Before(w.From) && t.Before(w.To)
}

// Filter returns a new dataset keeping sections inspected and distress
// reported inside the window. Super-sections are always kept.
func Filter(ds domain.YearDataset, w Window) domain.YearDataset {
	if w.From.IsZero() {
		return ds
	}
	out := domain.YearDataset{
		Year:          ds.Year,
		SuperSections: ds.SuperSections,
	}
	for _, s := range ds.SubSections {
		if w.Contains(s.LastInspected) {
			out.SubSections = append(out.SubSections, s)
		}
	}
	for _, p := range ds.DistressPoints {
		if w.Contains(p.ReportedAt) {
			out.DistressPoints = append(out.DistressPoints, p)
		}
	}
	return out
}
