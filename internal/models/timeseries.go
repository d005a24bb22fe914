// Package models defines the canonical data shapes served by fihub
package models

import (
	"sort"
	"time"
)

// Date layouts used when serialising series
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Point is one dated row of a series. Fields holds only values that were
// present and parseable upstream; a missing key means "absent", never zero.
type Point struct {
	Date   time.Time
	Fields map[string]float64
}

// Value returns the named field and whether it was present.
func (p Point) Value(field string) (float64, bool) {
	v, ok := p.Fields[field]
	return v, ok
}

// TimeSeries is an ordered, date-unique sequence of points.
type TimeSeries struct {
	Name    string
	Layout  string
	Columns []string
	Points  []Point
}

// NewTimeSeries builds a series from unordered points. Points are sorted
// ascending by date and later duplicates of a date replace earlier ones.
func NewTimeSeries(name, layout string, columns []string, points []Point) *TimeSeries {
	byDate := make(map[time.Time]int, len(points))
	unique := make([]Point, 0, len(points))
	for _, p := range points {
		if i, ok := byDate[p.Date]; ok {
			unique[i] = p
			continue
		}
		byDate[p.Date] = len(unique)
		unique = append(unique, p)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Date.Before(unique[j].Date) })

	if layout == "" {
		layout = DateLayout
	}
	return &TimeSeries{Name: name, Layout: layout, Columns: columns, Points: unique}
}

// Len returns the number of points.
func (s *TimeSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// WithPoints returns a copy of the series metadata carrying the given points.
func (s *TimeSeries) WithPoints(points []Point) *TimeSeries {
	return &TimeSeries{Name: s.Name, Layout: s.Layout, Columns: s.Columns, Points: points}
}

// Record is the JSON shape of a point: "date" plus every present field.
type Record map[string]any

// Records serialises the series in ascending date order. Volume-like
// columns are emitted as integers.
func (s *TimeSeries) Records() []Record {
	if s == nil {
		return []Record{}
	}
	out := make([]Record, 0, len(s.Points))
	for _, p := range s.Points {
		rec := Record{"date": p.Date.Format(s.Layout)}
		for _, col := range s.Columns {
			v, ok := p.Fields[col]
			if !ok {
				continue
			}
			if col == "volume" {
				rec[col] = int64(v)
				continue
			}
			rec[col] = v
		}
		out = append(out, rec)
	}
	return out
}
