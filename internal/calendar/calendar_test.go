package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAnchor(t *testing.T) {
	for _, day := range []time.Weekday{time.Friday, time.Thursday} {
		if got := New(day).Anchor(); got != day {
			t.Errorf("Anchor() = %v, want %v", got, day)
		}
	}
}

func TestMostRecentAnchor(t *testing.T) {
	cal := New(time.Friday)

	tests := []struct {
		name string
		asOf time.Time
		want time.Time
	}{
		{
			name: "asOf is a Friday",
			asOf: date(2026, time.August, 21), // Friday
			want: date(2026, time.August, 21),
		},
		{
			name: "asOf is a Saturday",
			asOf: date(2026, time.August, 22),
			want: date(2026, time.August, 21),
		},
		{
			name: "asOf is a Thursday",
			asOf: date(2026, time.August, 20),
			want: date(2026, time.August, 14),
		},
		{
			name: "time of day is ignored",
			asOf: time.Date(2026, time.August, 21, 23, 59, 0, 0, time.UTC),
			want: date(2026, time.August, 21),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.MostRecentAnchor(tt.asOf)
			if !got.Equal(tt.want) {
				t.Errorf("MostRecentAnchor(%v) = %v, want %v", tt.asOf, got, tt.want)
			}
		})
	}
}

func TestNextAnchor(t *testing.T) {
	cal := New(time.Friday)

	tests := []struct {
		name string
		date time.Time
		want time.Time
	}{
		{
			name: "Monday maps to same-week Friday",
			date: date(2026, time.August, 17),
			want: date(2026, time.August, 21),
		},
		{
			name: "Friday maps to itself",
			date: date(2026, time.August, 21),
			want: date(2026, time.August, 21),
		},
		{
			name: "Saturday maps to next Friday",
			date: date(2026, time.August, 22),
			want: date(2026, time.August, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.NextAnchor(tt.date)
			if !got.Equal(tt.want) {
				t.Errorf("NextAnchor(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestWeekEndingDates(t *testing.T) {
	cal := New(time.Friday)
	asOf := date(2026, time.August, 26) // Wednesday

	got := cal.WeekEndingDates(4, asOf)
	if len(got) != 4 {
		t.Fatalf("Expected 4 dates, got %d", len(got))
	}

	want := []time.Time{
		date(2026, time.July, 31),
		date(2026, time.August, 7),
		date(2026, time.August, 14),
		date(2026, time.August, 21),
	}

	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Oldest first, strictly ascending by one week
	for i := 1; i < len(got); i++ {
		if got[i].Sub(got[i-1]) != 7*24*time.Hour {
			t.Errorf("dates[%d]-dates[%d] = %v, want 168h", i, i-1, got[i].Sub(got[i-1]))
		}
	}
}

func TestWeekEndingDatesNonPositive(t *testing.T) {
	cal := New(time.Friday)
	if got := cal.WeekEndingDates(0, date(2026, time.August, 26)); got != nil {
		t.Errorf("Expected nil for zero lookback, got %v", got)
	}
}

func TestWeekEndingDatesThursdayAnchor(t *testing.T) {
	cal := New(time.Thursday)
	asOf := date(2026, time.August, 26) // Wednesday

	got := cal.WeekEndingDates(2, asOf)
	want := []time.Time{
		date(2026, time.August, 13),
		date(2026, time.August, 20),
	}

	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCurrentPeriodBounds(t *testing.T) {
	cal := New(time.Friday)
	asOf := time.Date(2026, time.August, 26, 14, 30, 0, 0, time.UTC) // Wednesday

	start, end := cal.CurrentPeriodBounds(asOf)
	if !start.Equal(date(2026, time.August, 21)) {
		t.Errorf("start = %v, want 2026-08-21", start)
	}
	if !end.Equal(date(2026, time.August, 26)) {
		t.Errorf("end = %v, want 2026-08-26", end)
	}
}
