// Package aggregate groups timestamped sales entries into daily, weekly or
// monthly buckets for the dashboard charts.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/core"
)

// DateLayout is the pt-BR short date used in bucket keys and chart labels.
const DateLayout = "02/01/2006"

var ErrUnknownPeriod = errors.New("unknown period")

// Period selects the bucket granularity.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
)

var periodNames = [...]string{
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p]
}

// ParsePeriod maps a period name to its Period.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range periodNames {
		if name == s {
			return Period(p), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Entry is one point of a sales time series. A nil Orders counts as one
// order; a nil Revenue counts as zero.
type Entry struct {
	Timestamp time.Time
	Revenue   *float64
	Orders    *int
}

func (e Entry) orders() int {
	if e.Orders == nil {
		return 1
	}
	return *e.Orders
}

func (e Entry) revenue() float64 {
	if e.Revenue == nil {
		return 0
	}
	return *e.Revenue
}

// Bucket is the aggregate of every entry sharing a period key.
type Bucket struct {
	Key     string
	Orders  int
	Revenue float64
}

// Key returns the bucket key of t for the period. Weekly buckets are named
// after the Sunday that starts the week.
func Key(t time.Time, p Period) string {
	switch p {
	case Weekly:
		sunday := t.AddDate(0, 0, -int(t.Weekday()))
		return "Semana " + sunday.Format(DateLayout)
	case Monthly:
		return fmt.Sprintf("%d/%04d", int(t.Month()), t.Year())
	case Daily:
	}
	return t.Format(DateLayout)
}

// Group sums entries per period key. Buckets come out in the order their key
// first appears in the input.
func Group(entries []Entry, p Period) []Bucket {
	out := make([]Bucket, 0)
	index := make(map[string]int)
	for _, e := range entries {
		key := Key(e.Timestamp, p)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Bucket{Key: key})
		}
		out[i].Orders += e.orders()
		out[i].Revenue += e.revenue()
	}
	return out
}

// Point is one sample of the raw line chart.
type Point struct {
	Label   string
	Revenue float64
	Orders  int
}

// ChartPoints maps entries one-to-one to labelled chart samples.
func ChartPoints(entries []Entry) []Point {
	out := make([]Point, 0, len(entries))
	for _, e := range entries {
		out = append(out, Point{
			Label:   e.Timestamp.Format(DateLayout),
			Revenue: e.revenue(),
			Orders:  e.orders(),
		})
	}
	return out
}

// FromSeries adapts a backend time series to entries.
func FromSeries(series []core.SalesPoint) []Entry {
	out := make([]Entry, 0, len(series))
	for _, s := range series {
		revenue, orders := s.Revenue, s.Orders
		out = append(out, Entry{Timestamp: s.Date, Revenue: &revenue, Orders: &orders})
	}
	return out
}
