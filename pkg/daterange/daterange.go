// Package daterange resolves report filters into closed day windows in a
// fixed reporting timezone.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrUnknownPreset = errors.New("unknown date preset")
)

// Preset names accepted by Resolve.
const (
	PresetToday       = "today"
	PresetYesterday   = "yesterday"
	PresetLast7Days   = "last_7d"
	PresetLast30Days  = "last_30d"
	PresetThisMonth   = "this_month"
	PresetPrevMonth   = "prev_month"
	PresetThisQuarter = "this_quarter"
	PresetThisYear    = "this_year"
)

// Presets lists every accepted preset name.
var Presets = []string{
	PresetToday, PresetYesterday, PresetLast7Days, PresetLast30Days,
	PresetThisMonth, PresetPrevMonth, PresetThisQuarter, PresetThisYear,
}

// Criteria is the raw filter input. Dates use the 2006-01-02 layout;
// RFC 3339 timestamps are accepted and truncated to their calendar day in
// the reporting timezone.
type Criteria struct {
	Start  string `json:"start,omitempty" query:"start"`
	End    string `json:"end,omitempty" query:"end"`
	Date   string `json:"date,omitempty" query:"date"`
	Preset string `json:"range,omitempty" query:"range"`
}

// IsEmpty reports whether no criterion was supplied.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Start) == "" &&
		strings.TrimSpace(c.End) == "" &&
		strings.TrimSpace(c.Date) == "" &&
		strings.TrimSpace(c.Preset) == ""
}

// Window is a closed interval [Start, End]. The zero Window means "no filter".
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window carries no bounds.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window. A zero window
// contains every instant.
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	if w.IsZero() {
		return "[-, -]"
	}
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Resolver turns Criteria into Windows anchored to a clock and a location.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver creates a Resolver for loc. A nil loc means UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, now: time.Now}
}

// WithClock returns a copy of r that reads "now" from fn.
func (r *Resolver) WithClock(fn func() time.Time) *Resolver {
	cp := *r
	cp.now = fn
	return &cp
}

// Location returns the reporting timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve applies, in order: explicit start/end, a single date, then a
// preset. When only one explicit bound is present the other is taken from
// the same calendar day; reversed bounds are swapped. Empty criteria yield
// the zero Window.
func (r *Resolver) Resolve(c Criteria) (Window, error) {
	start := strings.TrimSpace(c.Start)
	end := strings.TrimSpace(c.End)

	switch {
	case start != "" || end != "":
		if start == "" {
			start = end
		}
		if end == "" {
			end = start
		}
		s, err := r.parseDay(start)
		if err != nil {
			return Window{}, err
		}
		e, err := r.parseDay(end)
		if err != nil {
			return Window{}, err
		}
		if s.After(e) {
			s, e = e, s
		}
		return Window{Start: startOfDay(s), End: endOfDay(e)}, nil

	case strings.TrimSpace(c.Date) != "":
		d, err := r.parseDay(c.Date)
		if err != nil {
			return Window{}, err
		}
		return Window{Start: startOfDay(d), End: endOfDay(d)}, nil

	case strings.TrimSpace(c.Preset) != "":
		return r.Preset(c.Preset)
	}

	return Window{}, nil
}

// Preset resolves a named window relative to now.
func (r *Resolver) Preset(name string) (Window, error) {
	today := startOfDay(r.now().In(r.loc))

	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetToday:
		return dayWindow(today, today), nil
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return dayWindow(y, y), nil
	case PresetLast7Days:
		return dayWindow(today.AddDate(0, 0, -6), today), nil
	case PresetLast30Days:
		return dayWindow(today.AddDate(0, 0, -29), today), nil
	case PresetThisMonth:
		first := firstOfMonth(today)
		return dayWindow(first, lastOfMonth(first)), nil
	case PresetPrevMonth:
		prev := AddMonthsNoOverflow(today, -1)
		first := firstOfMonth(prev)
		return dayWindow(first, lastOfMonth(first)), nil
	case PresetThisQuarter:
		quarter := (int(today.Month()) + 2) / 3
		first := time.Date(today.Year(), time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, r.loc)
		last := lastOfMonth(first.AddDate(0, 2, 0))
		return dayWindow(first, last), nil
	case PresetThisYear:
		first := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, r.loc)
		last := time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, r.loc)
		return dayWindow(first, last), nil
	}
	return Window{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

func (r *Resolver) parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, r.loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, r.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(r.loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// AddMonthsNoOverflow shifts t by n months, clamping the day to the last
// day of the target month instead of rolling into the next one.
func AddMonthsNoOverflow(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	day := t.Day()
	if last := lastOfMonth(target).Day(); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func dayWindow(from, to time.Time) Window {
	return Window{Start: startOfDay(from), End: endOfDay(to)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func lastOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, -1)
}
