package models

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date format used everywhere a date crosses a
// boundary: external APIs, persisted JSON, and event payloads. Because the
// layout is zero-padded ISO, lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// TimePoint is one observation in a price series. Historical points are
// immutable after collection; predicted points are appended after the last
// historical point and carry strictly later dates.
type TimePoint struct {
	Date      string  `json:"date"`
	Value     float64 `json:"value"`
	Predicted bool    `json:"predicted"`
}

// Time parses the point's date.
func (p TimePoint) Time() (time.Time, error) {
	return time.Parse(DateLayout, p.Date)
}

// NormalizeSeries sorts points ascending by date and collapses duplicate
// dates, keeping the last occurrence. The input is not modified.
func NormalizeSeries(points []TimePoint) []TimePoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]TimePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date == p.Date {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}

// SeriesValues extracts the numeric values of a series in order.
func SeriesValues(points []TimePoint) []float64 {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	return vals
}

// LastDate returns the date of the final point, or "" for an empty series.
func LastDate(points []TimePoint) string {
	if len(points) == 0 {
		return ""
	}
	return points[len(points)-1].Date
}

// AnomalyZone is a contiguous date range flagged by the price-anomaly
// clustering collaborator.
type AnomalyZone struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Direction string  `json:"direction"` // "spike" or "dip"
	Magnitude float64 `json:"magnitude"`
}

// Features are the pure extraction over a price series.
type Features struct {
	Trend      string  `json:"trend"`      // up | flat | down
	Volatility string  `json:"volatility"` // low | mid | high
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Latest     float64 `json:"latest"`
	Count      int     `json:"count"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
}
