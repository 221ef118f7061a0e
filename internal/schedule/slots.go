package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
)

const (
	minutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes as "HH:MM", wrapping past midnight.
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IsOvernight reports whether closing falls on the next calendar day.
func IsOvernight(open, close string) bool {
	o, err1 := ParseClock(open)
	c, err2 := ParseClock(close)
	return err1 == nil && err2 == nil && c <= o
}

// GenerateSlots lists slot start times from open (inclusive) to close
// (exclusive). When close <= open the day runs past midnight. A trailing
// slot that would end after close is not produced.
func GenerateSlots(open, close string, slotMinutes int) ([]string, error) {
	if slotMinutes <= 0 {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("slot duration must be positive, got %d", slotMinutes)}
	}
	start, err := ParseClock(open)
	if err != nil {
		return nil, &domain.ConfigurationError{Reason: "opening time: " + err.Error()}
	}
	end, err := ParseClock(close)
	if err != nil {
		return nil, &domain.ConfigurationError{Reason: "closing time: " + err.Error()}
	}
	if end <= start {
		end += minutesPerDay
	}

	slots := make([]string, 0, (end-start)/slotMinutes)
	for m := start; m+slotMinutes <= end; m += slotMinutes {
		slots = append(slots, FormatClock(m))
	}
	return slots, nil
}

// DaySlots generates the grid for the given settings.
func DaySlots(s domain.Settings) ([]string, error) {
	return GenerateSlots(s.OpeningTime, s.ClosingTime, s.SlotDurationMinutes)
}

// ParseDate parses a "YYYY-MM-DD" business date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// AddDays shifts a business date by n calendar days.
func AddDays(date string, n int) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}

// SlotTime returns the wall-clock instant a slot starts. On an overnight
// schedule, slots earlier than opening time belong to the next calendar day.
func SlotTime(date, slot string, s domain.Settings) (time.Time, error) {
	loc, err := s.Location()
	if err != nil {
		return time.Time{}, &domain.ConfigurationError{Reason: "timezone: " + err.Error()}
	}
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(slot)
	if err != nil {
		return time.Time{}, err
	}
	if IsOvernight(s.OpeningTime, s.ClosingTime) {
		if open, err := ParseClock(s.OpeningTime); err == nil && m < open {
			day = day.AddDate(0, 0, 1)
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc), nil
}

// IsWorkingDay checks the weekday of the business date. Slots after
// midnight on an overnight schedule follow the date they were booked under.
func IsWorkingDay(date string, s domain.Settings) (bool, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false, err
	}
	wd := d.Weekday()
	for _, w := range s.WorkingDays {
		if w == wd {
			return true, nil
		}
	}
	return false, nil
}

// Today is the business date of now in the settings timezone.
func Today(now time.Time, s domain.Settings) string {
	loc, err := s.Location()
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
