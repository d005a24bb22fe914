// Package timeseries implements date windowing and statistics over models.TimeSeries
package timeseries

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// Floor is the earliest date any filtered series may include.
var Floor = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultLookback is the window used when no start date is supplied.
const DefaultLookback = 366 * 24 * time.Hour

// ParseDate parses a YYYY-MM-DD string. The error wraps common.ErrInvalidParameter.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", common.ErrInvalidParameter, s)
	}
	return t, nil
}

// ValidateDates checks each non-empty date string.
func ValidateDates(dates ...string) error {
	for _, d := range dates {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}

// today truncates now to midnight UTC on its calendar date.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Bounds resolves the inclusive filter bounds.
// lower = max(start, Floor) or Floor; upper = end or the current instant.
// Unparseable bounds are treated as absent.
func Bounds(start, end string, now time.Time) (time.Time, time.Time) {
	lower := Floor
	if start != "" {
		if s, err := ParseDate(start); err == nil && s.After(Floor) {
			lower = s
		}
	}

	upper := now.UTC()
	if end != "" {
		if e, err := ParseDate(end); err == nil {
			upper = e
		}
	}
	return lower, upper
}

// ApplyDateFilter keeps points with lower <= date <= upper. The input is not modified.
func ApplyDateFilter(series *models.TimeSeries, start, end string, now time.Time) *models.TimeSeries {
	if series.Len() == 0 {
		if series == nil {
			return &models.TimeSeries{Layout: models.DateLayout}
		}
		return series.WithPoints(nil)
	}

	lower, upper := Bounds(start, end, now)
	kept := make([]models.Point, 0, len(series.Points))
	for _, p := range series.Points {
		if p.Date.Before(lower) || p.Date.After(upper) {
			continue
		}
		kept = append(kept, p)
	}
	return series.WithPoints(kept)
}

// DefaultWindow resolves the request window for price history.
// end becomes yesterday when absent or later than today; start becomes
// today minus DefaultLookback when absent or later than end.
func DefaultWindow(start, end string, now time.Time) (string, string, error) {
	day := today(now)

	endDate := day.AddDate(0, 0, -1)
	if end != "" {
		e, err := ParseDate(end)
		if err != nil {
			return "", "", err
		}
		if !e.After(day) {
			endDate = e
		}
	}

	startDate := day.Add(-DefaultLookback)
	if start != "" {
		s, err := ParseDate(start)
		if err != nil {
			return "", "", err
		}
		if !s.After(endDate) {
			startDate = s
		}
	}

	return startDate.Format(models.DateLayout), endDate.Format(models.DateLayout), nil
}
