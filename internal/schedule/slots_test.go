package schedule

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
)

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name    string
		open    string
		close   string
		minutes int
		want    []string
	}{
		{"same day", "08:00", "10:00", 30, []string{"08:00", "08:30", "09:00", "09:30"}},
		{"hourly", "08:00", "12:00", 60, []string{"08:00", "09:00", "10:00", "11:00"}},
		{"overnight", "22:00", "03:00", 60, []string{"22:00", "23:00", "00:00", "01:00", "02:00"}},
		{"partial trailing slot dropped", "08:00", "09:45", 30, []string{"08:00", "08:30", "09:00"}},
		{"equal bounds is a full day", "06:00", "06:00", 360, []string{"06:00", "12:00", "18:00", "00:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSlots(tt.open, tt.close, tt.minutes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	a, _ := GenerateSlots("16:00", "01:30", 30)
	b, _ := GenerateSlots("16:00", "01:30", 30)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical output, got %v and %v", a, b)
	}
	if len(a) != 19 {
		t.Fatalf("expected 19 slots, got %d", len(a))
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	cases := []struct {
		open, close string
		minutes     int
	}{
		{"8am", "10:00", 30},
		{"08:00", "25:00", 30},
		{"08:00", "10:00", 0},
		{"08:00", "10:00", -15},
	}
	for _, c := range cases {
		_, err := GenerateSlots(c.open, c.close, c.minutes)
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%v: expected ConfigurationError, got %v", c, err)
		}
	}
}

func TestParseAndFormatClock(t *testing.T) {
	m, err := ParseClock("09:05")
	if err != nil || m != 545 {
		t.Fatalf("expected 545, got %d (%v)", m, err)
	}
	if got := FormatClock(1440 + 90); got != "01:30" {
		t.Fatalf("expected 01:30, got %s", got)
	}
	for _, bad := range []string{"", "9", "24:00", "12:60", "12:5", "ab:cd"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSlotTimeOvernightRollsToNextDay(t *testing.T) {
	s := domain.DefaultSettings()
	s.Timezone = "UTC"
	s.OpeningTime = "18:00"
	s.ClosingTime = "02:00"

	late, err := SlotTime("2025-03-10", "23:00", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC); !late.Equal(want) {
		t.Fatalf("expected %v, got %v", want, late)
	}

	afterMidnight, err := SlotTime("2025-03-10", "01:00", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC); !afterMidnight.Equal(want) {
		t.Fatalf("expected %v, got %v", want, afterMidnight)
	}
}

func TestSlotTimeUsesTimezone(t *testing.T) {
	s := domain.DefaultSettings()
	s.Timezone = "Africa/Cairo"
	got, err := SlotTime("2025-01-15", "10:00", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location().String() != "Africa/Cairo" || got.Hour() != 10 {
		t.Fatalf("expected 10:00 Africa/Cairo, got %v", got)
	}
}

func TestIsWorkingDay(t *testing.T) {
	s := domain.DefaultSettings()
	s.WorkingDays = []time.Weekday{time.Monday, time.Tuesday}

	ok, err := IsWorkingDay("2025-03-10", s) // Monday
	if err != nil || !ok {
		t.Fatalf("expected Monday to be a working day, got %v (%v)", ok, err)
	}
	ok, _ = IsWorkingDay("2025-03-14", s) // Friday
	if ok {
		t.Fatal("expected Friday to be closed")
	}
	if _, err := IsWorkingDay("2025-13-01", s); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2025-12-29", 7)
	if err != nil || got != "2026-01-05" {
		t.Fatalf("expected 2026-01-05, got %s (%v)", got, err)
	}
}
