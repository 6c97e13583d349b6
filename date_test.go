package closebook

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-08")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if got := p.String(); got != "2025-08" {
		t.Errorf("String() = %q, want %q", got, "2025-08")
	}
	if _, err := ParsePeriod("2025-8"); err == nil {
		t.Errorf("ParsePeriod(%q) should fail", "2025-8")
	}
	if _, err := ParsePeriod("august"); err == nil {
		t.Errorf("ParsePeriod(%q) should fail", "august")
	}
}

func TestPeriodBounds(t *testing.T) {
	testCases := []struct {
		period string
		start  string
		end    string
		prev   string
	}{
		{"2025-08", "2025-08-01", "2025-08-31", "2025-07"},
		{"2025-01", "2025-01-01", "2025-01-31", "2024-12"},
		{"2024-02", "2024-02-01", "2024-02-29", "2024-01"},
	}
	for _, tc := range testCases {
		p := MustParsePeriod(tc.period)
		if got := p.Start().String(); got != tc.start {
			t.Errorf("%s Start() = %q, want %q", tc.period, got, tc.start)
		}
		if got := p.End().String(); got != tc.end {
			t.Errorf("%s End() = %q, want %q", tc.period, got, tc.end)
		}
		if got := p.Prev().String(); got != tc.prev {
			t.Errorf("%s Prev() = %q, want %q", tc.period, got, tc.prev)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	p := MustParsePeriod("2025-08")
	if !p.Contains(MustParseDate("2025-08-15")) {
		t.Errorf("period should contain 2025-08-15")
	}
	if p.Contains(MustParseDate("2025-09-01")) {
		t.Errorf("period should not contain 2025-09-01")
	}
}

func TestDaysBetween(t *testing.T) {
	a := MustParseDate("2025-08-29")
	b := MustParseDate("2025-08-31")
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween = %d, want 2", got)
	}
	if got := DaysBetween(b, a); got != -2 {
		t.Errorf("DaysBetween reversed = %d, want -2", got)
	}
}

func TestNewDateNormalizes(t *testing.T) {
	d := NewDate(2025, time.August, 32)
	if got := d.String(); got != "2025-09-01" {
		t.Errorf("NewDate overflow = %q, want 2025-09-01", got)
	}
}
