package marketdata

import (
	"testing"
	"time"
)

// TestPreviousTradingDaySkipsWeekend covers scenario S9: a Monday run must
// resolve to the preceding Friday, not Saturday or Sunday.
func TestPreviousTradingDaySkipsWeekend(t *testing.T) {
	monday := time.Date(2026, time.August, 3, 9, 30, 0, 0, time.UTC)
	got := PreviousTradingDay(monday)
	want := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("PreviousTradingDay(Monday) = %v, want %v", got, want)
	}
}

func TestPreviousTradingDayMidweek(t *testing.T) {
	wed := time.Date(2026, time.August, 5, 9, 30, 0, 0, time.UTC)
	got := PreviousTradingDay(wed)
	want := time.Date(2026, time.August, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("PreviousTradingDay(Wednesday) = %v, want %v", got, want)
	}
}

func TestPreviousTradingDayIsAlwaysAWeekday(t *testing.T) {
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		d := start.AddDate(0, 0, i)
		got := PreviousTradingDay(d)
		if got.Weekday() == time.Saturday || got.Weekday() == time.Sunday {
			t.Fatalf("PreviousTradingDay(%v) = %v falls on a weekend", d, got)
		}
	}
}
