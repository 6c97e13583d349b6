package closebook

import (
	"fmt"
	"time"
)

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02"

// PeriodFormat is the format used to represent accounting periods.
const PeriodFormat = "2006-01"

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// ParseDate parses an ISO-8601 date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t.Year(), t.Month(), t.Day()}, nil
}

// MustParseDate parses an ISO-8601 date string and panics on error.
// Intended for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.time().Format(DateFormat) }

func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

func (d Date) Before(o Date) bool { return d.time().Before(o.time()) }
func (d Date) After(o Date) bool  { return d.time().After(o.time()) }

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.time().Sub(a.time()) / (24 * time.Hour))
}

// Period is a calendar month accounting period, e.g. "2025-08".
type Period struct {
	y int
	m time.Month
}

// NewPeriod returns the period for the given year and month.
func NewPeriod(year int, month time.Month) Period { return Period{year, month} }

// ParsePeriod parses a "2006-01" period string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodFormat, s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return Period{t.Year(), t.Month()}, nil
}

// MustParsePeriod parses a period string and panics on error.
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string {
	return time.Date(p.y, p.m, 1, 0, 0, 0, 0, time.UTC).Format(PeriodFormat)
}

func (p Period) IsZero() bool { return p.y == 0 && p.m == 0 }

// Prev returns the preceding period.
func (p Period) Prev() Period {
	t := time.Date(p.y, p.m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Period{t.Year(), t.Month()}
}

// Start returns the first day of the period.
func (p Period) Start() Date { return NewDate(p.y, p.m, 1) }

// End returns the last day of the period.
func (p Period) End() Date {
	t := time.Date(p.y, p.m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	return Date{t.Year(), t.Month(), t.Day()}
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.y == p.y && d.m == p.m
}
