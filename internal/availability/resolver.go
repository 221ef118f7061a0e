package availability

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/schedule"
)

// Request is a customer booking submission after decoding.
type Request struct {
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	Date            string `json:"date" validate:"required"`
	Time            string `json:"time" validate:"required"`
	DurationMinutes int    `json:"duration"`
	IsRecurring     bool   `json:"is_recurring"`
	RecurringWeeks  int    `json:"recurring_weeks"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Snapshot is a point-in-time read of one date.
type Snapshot struct {
	// Bookings holds every row stored for the date.
	Bookings []domain.Booking
	// CustomerBookings holds the requesting customer's rows for the date.
	CustomerBookings []domain.Booking
}

// Lookup loads the snapshot for a date. ValidateRequest calls it once per
// date it needs, so a recurring request reads each week separately.
type Lookup func(date string) (Snapshot, error)

// Availability is the answer for a single date.
type Availability struct {
	Date        string   `json:"date"`
	Available   bool     `json:"available"`
	Slots       []string `json:"slots"`
	BookedSlots []string `json:"booked_slots"`
}

type interval struct{ start, end time.Time }

func (a interval) overlaps(b interval) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// held returns the half-open intervals occupied by active rows on date.
// Each row spans the cell length it was written with, so rows from an
// earlier grid still block the cells they cover.
func held(date string, bookings []domain.Booking, now time.Time, s domain.Settings) []interval {
	out := make([]interval, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive(now) {
			continue
		}
		start, err := schedule.SlotTime(date, b.Time, s)
		if err != nil {
			continue
		}
		span := time.Duration(b.Span(s.SlotDurationMinutes)) * time.Minute
		out = append(out, interval{start: start, end: start.Add(span)})
	}
	return out
}

// BookedSlots returns the grid cells that overlap a row still holding time.
func BookedSlots(date string, grid []string, bookings []domain.Booking, now time.Time, s domain.Settings) map[string]bool {
	booked := make(map[string]bool)
	rows := held(date, bookings, now, s)
	if len(rows) == 0 {
		return booked
	}
	cell := time.Duration(s.SlotDurationMinutes) * time.Minute
	for _, slot := range grid {
		start, err := schedule.SlotTime(date, slot, s)
		if err != nil {
			continue
		}
		c := interval{start: start, end: start.Add(cell)}
		for _, h := range rows {
			if c.overlaps(h) {
				booked[slot] = true
				break
			}
		}
	}
	return booked
}

// AvailableSlots filters allSlots down to the ones that are free and start
// strictly after now plus the lead time. Order is preserved.
func AvailableSlots(date string, allSlots []string, bookings []domain.Booking, now time.Time, s domain.Settings) []string {
	if ok, err := schedule.IsWorkingDay(date, s); err != nil || !ok {
		return []string{}
	}
	booked := BookedSlots(date, allSlots, bookings, now, s)
	cutoff := now.Add(s.LeadTime())

	out := make([]string, 0, len(allSlots))
	for _, slot := range allSlots {
		if booked[slot] {
			continue
		}
		at, err := schedule.SlotTime(date, slot, s)
		if err != nil || !at.After(cutoff) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// Day computes the availability view for one date. Misconfigured settings
// and closed days both read as "nothing available".
func Day(date string, bookings []domain.Booking, now time.Time, s domain.Settings) Availability {
	out := Availability{Date: date, Slots: []string{}, BookedSlots: []string{}}
	if ok, err := schedule.IsWorkingDay(date, s); err != nil || !ok {
		return out
	}
	grid, err := schedule.DaySlots(s)
	if err != nil || len(grid) == 0 {
		return out
	}

	booked := BookedSlots(date, grid, bookings, now, s)
	for _, slot := range grid {
		if booked[slot] {
			out.BookedSlots = append(out.BookedSlots, slot)
		}
	}
	out.Slots = AvailableSlots(date, grid, bookings, now, s)
	out.Available = len(out.Slots) > 0
	return out
}

// ValidateRequest runs the booking checks in order and stops at the first
// failure. On success it returns the group to persist.
func ValidateRequest(req Request, lookup Lookup, s domain.Settings, now time.Time) (*domain.BookingGroup, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	// 1. required fields
	if err := validate.Struct(req); err != nil {
		return nil, domain.Reject(domain.CodeMissingData, "name, phone, date and time are required")
	}
	if _, err := time.Parse(schedule.DateLayout, req.Date); err != nil {
		return nil, domain.Reject(domain.CodeMissingData, "invalid date %q", req.Date)
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		return nil, domain.Reject(domain.CodeMissingData, "invalid time %q", req.Time)
	}

	grid, err := schedule.DaySlots(s)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, &domain.ConfigurationError{Reason: "opening hours produce no slots"}
	}

	// 2-7 for the requested date
	first, err := lookup(req.Date)
	if err != nil {
		return nil, err
	}
	run, err := checkDate(req, req.Date, first, grid, s, now)
	if err != nil {
		return nil, err
	}

	// 8. recurrence
	dates := []string{req.Date}
	weeks := 1
	if req.IsRecurring {
		weeks = req.RecurringWeeks
		if weeks < 1 || weeks > s.MaxRecurringWeeks {
			return nil, domain.Reject(domain.CodeRecurringLimit, "recurring weeks must be between 1 and %d", s.MaxRecurringWeeks)
		}
		dates, err = ExpandRecurring(req.Date, weeks)
		if err != nil {
			return nil, domain.Reject(domain.CodeMissingData, "invalid date %q", req.Date)
		}
		for _, date := range dates[1:] {
			snap, err := lookup(date)
			if err != nil {
				return nil, err
			}
			if _, err := checkDate(req, date, snap, grid, s, now); err != nil {
				var ve *domain.ValidationError
				if errors.As(err, &ve) {
					ve.Date = date
				}
				return nil, err
			}
		}
	}

	return buildGroup(req, dates, run, weeks, s, now), nil
}

// checkDate applies the per-date checks and returns the slot run.
func checkDate(req Request, date string, snap Snapshot, grid []string, s domain.Settings, now time.Time) ([]string, error) {
	// 2. working day
	ok, err := schedule.IsWorkingDay(date, s)
	if err != nil {
		return nil, domain.Reject(domain.CodeMissingData, "invalid date %q", date)
	}
	if !ok {
		return nil, domain.Reject(domain.CodeNonWorkingDay, "the court is closed on %s", date)
	}

	// 3. start must be after now plus the lead time
	start, err := schedule.SlotTime(date, req.Time, s)
	if err != nil {
		return nil, err
	}
	if !start.After(now.Add(s.LeadTime())) {
		return nil, domain.Reject(domain.CodePastTime, "time already passed")
	}

	// 4. duration
	if !slices.Contains(s.AllowedDurations, req.DurationMinutes) || req.DurationMinutes%s.SlotDurationMinutes != 0 {
		return nil, domain.Reject(domain.CodeInvalidDuration, "invalid duration: %d minutes", req.DurationMinutes)
	}

	// 5. consecutive slots on the grid
	n := req.DurationMinutes / s.SlotDurationMinutes
	idx := slices.Index(grid, req.Time)
	if idx < 0 || idx+n > len(grid) {
		return nil, domain.Reject(domain.CodeNotEnoughSlots, "not enough consecutive slots from %s", req.Time)
	}
	run := grid[idx : idx+n]

	// 6. conflicts by time overlap
	booked := BookedSlots(date, run, snap.Bookings, now, s)
	for _, slot := range run {
		if booked[slot] {
			return nil, domain.Reject(domain.CodeSlotBooked, "slot %s is already booked", slot)
		}
	}

	// 7. daily cap
	limit := int(math.Round(s.MaxHoursPerPersonPerDay * 60))
	if DailyMinutes(snap.CustomerBookings, now, s)+req.DurationMinutes > limit {
		return nil, domain.Reject(domain.CodeDailyLimit, "daily limit of %g hours per person exceeded", s.MaxHoursPerPersonPerDay)
	}

	return run, nil
}

// DailyMinutes sums the minutes a customer still holds on one date. A group
// counts the cells it has left, capped at its booked duration, so rows an
// admin removed stop counting.
func DailyMinutes(rows []domain.Booking, now time.Time, s domain.Settings) int {
	used := make(map[string]int)
	limit := make(map[string]int)
	order := make([]string, 0)
	for i := range rows {
		r := &rows[i]
		if !r.IsActive(now) {
			continue
		}
		key := r.GroupID
		if key == "" {
			key = r.ID
		}
		if _, ok := used[key]; !ok {
			order = append(order, key)
			limit[key] = r.DurationMinutes
		}
		used[key] += r.Span(s.SlotDurationMinutes)
	}
	total := 0
	for _, key := range order {
		total += min(used[key], limit[key])
	}
	return total
}

// ExpandRecurring returns date, date+7, ... for the given number of weeks.
func ExpandRecurring(date string, weeks int) ([]string, error) {
	if weeks < 1 {
		weeks = 1
	}
	dates := make([]string, 0, weeks)
	for k := 0; k < weeks; k++ {
		d, err := schedule.AddDays(date, 7*k)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Price charges each slot at its rate and repeats it for every date.
func Price(run []string, dates int, s domain.Settings) float64 {
	slotHours := float64(s.SlotDurationMinutes) / 60
	perDate := 0.0
	for _, slot := range run {
		perDate += rate(slot, s) * slotHours
	}
	return math.Round(perDate*float64(dates)*100) / 100
}

func rate(slot string, s domain.Settings) float64 {
	if !s.NightRateEnabled {
		return s.PricePerHour
	}
	m, err := schedule.ParseClock(slot)
	if err != nil {
		return s.PricePerHour
	}
	if night, err := schedule.ParseClock(s.NightStartTime); err == nil && m >= night {
		return s.NightPricePerHour
	}
	if schedule.IsOvernight(s.OpeningTime, s.ClosingTime) {
		if open, err := schedule.ParseClock(s.OpeningTime); err == nil && m < open {
			return s.NightPricePerHour
		}
	}
	return s.PricePerHour
}

func buildGroup(req Request, dates, run []string, weeks int, s domain.Settings, now time.Time) *domain.BookingGroup {
	g := &domain.BookingGroup{
		GroupID:         uuid.NewString(),
		BookingNumber:   NewBookingNumber(now),
		CustomerName:    req.Name,
		Phone:           req.Phone,
		Dates:           dates,
		Slots:           append([]string(nil), run...),
		DurationMinutes: req.DurationMinutes,
		SlotMinutes:     s.SlotDurationMinutes,
		TotalPrice:      Price(run, len(dates), s),
		CreatedAt:       now,
		IsRecurring:     req.IsRecurring,
		RecurringWeeks:  weeks,
	}
	if s.RequirePaymentConfirmation {
		g.Status = domain.BookingPending
		if s.PaymentTimeoutMinutes > 0 {
			exp := now.Add(s.PaymentTimeout())
			g.ExpiresAt = &exp
		}
	} else {
		g.Status = domain.BookingConfirmed
		at := now
		g.ConfirmedAt = &at
	}

	for _, date := range dates {
		for _, slot := range run {
			g.Rows = append(g.Rows, domain.BookingSlot{ID: uuid.NewString(), Date: date, Time: slot})
		}
	}
	return g
}

// NewBookingNumber returns a short code like "HY250105-3F9A1C".
func NewBookingNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("HY%s-%s", now.UTC().Format("060102"), strings.ToUpper(id[:6]))
}
