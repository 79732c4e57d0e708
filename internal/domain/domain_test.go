package domain

import (
	"testing"
	"time"
)

func TestDayWindow(t *testing.T) {
	date := time.Date(2026, 3, 15, 14, 37, 22, 0, time.UTC)
	from, to := DayWindow(date)

	if !from.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window start = %v", from)
	}
	if !to.Equal(time.Date(2026, 3, 15, 23, 59, 59, 999000000, time.UTC)) {
		t.Errorf("window end = %v", to)
	}

	// Midnight of the next day is outside the window
	next := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !to.Before(next) {
		t.Error("window end overlaps the next day")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Year() != 2026 || d.Month() != time.March || d.Day() != 15 {
		t.Errorf("unexpected date: %v", d)
	}

	for _, bad := range []string{"15-03-2026", "2026/03/15", "2026-13-01", "yesterday", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	cases := map[string]RiskLevel{
		"LOW":      RiskLow,
		"medium":   RiskMedium,
		"Critical": RiskCritical,
	}
	for in, want := range cases {
		got, err := ParseRiskLevel(in)
		if err != nil {
			t.Errorf("ParseRiskLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRiskLevel(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseRiskLevel("SEVERE"); err == nil {
		t.Error("expected error for unknown level")
	}
}
