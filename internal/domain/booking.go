package domain

import (
	"sort"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingDeclined  BookingStatus = "declined"
	BookingExpired   BookingStatus = "expired"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingDeclined, BookingExpired:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether the status machine allows s -> to.
// Only pending bookings move; confirmed, declined and expired are terminal.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	if s != BookingPending {
		return false
	}
	switch to {
	case BookingConfirmed, BookingDeclined, BookingExpired:
		return true
	default:
		return false
	}
}

// Booking is one storage row: a single slot-grid cell on a single date.
// Rows created by the same submission share GroupID and BookingNumber.
type Booking struct {
	ID              string        `json:"id"`
	GroupID         string        `json:"group_id"`
	BookingNumber   string        `json:"booking_number"`
	CustomerName    string        `json:"customer_name"`
	Phone           string        `json:"phone"`
	Date            string        `json:"date"`
	Time            string        `json:"time"`
	DurationMinutes int           `json:"duration_minutes"`
	SlotMinutes     int           `json:"slot_minutes"`
	Status          BookingStatus `json:"status"`
	Price           float64       `json:"price"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
	DeclinedAt      *time.Time    `json:"declined_at,omitempty"`
	IsRecurring     bool          `json:"is_recurring"`
	RecurringWeeks  int           `json:"recurring_weeks"`
	RecurringDates  []string      `json:"recurring_dates,omitempty"`
	// Seq is the row's position inside its group; row 0 carries the price.
	Seq int `json:"seq"`
}

// EffectiveStatus applies lazy expiry: a pending row whose ExpiresAt has
// passed reads as expired even before the sweep has rewritten it.
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.Status == BookingPending && b.ExpiresAt != nil && now.After(*b.ExpiresAt) {
		return BookingExpired
	}
	return b.Status
}

// IsActive reports whether the row still occupies its slot.
func (b *Booking) IsActive(now time.Time) bool {
	switch b.EffectiveStatus(now) {
	case BookingPending, BookingConfirmed:
		return true
	default:
		return false
	}
}

// Span returns how many minutes the row holds from its start time. Rows
// written without a recorded cell length fall back to current.
func (b *Booking) Span(current int) int {
	if b.SlotMinutes > 0 {
		return b.SlotMinutes
	}
	return current
}

// groupKey falls back to the row id for rows written without a group.
func (b *Booking) groupKey() string {
	if b.GroupID != "" {
		return b.GroupID
	}
	return b.ID
}

// BookingSlot is one (date, time) cell owned by a BookingGroup.
type BookingSlot struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// BookingGroup is the aggregate created by one customer submission. It owns
// the total price; rows exist only at the storage boundary.
type BookingGroup struct {
	GroupID         string        `json:"group_id"`
	BookingNumber   string        `json:"booking_number"`
	CustomerName    string        `json:"customer_name"`
	Phone           string        `json:"phone"`
	Dates           []string      `json:"dates"`
	Slots           []string      `json:"slots"`
	DurationMinutes int           `json:"duration_minutes"`
	SlotMinutes     int           `json:"slot_minutes"`
	Status          BookingStatus `json:"status"`
	TotalPrice      float64       `json:"total_price"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
	DeclinedAt      *time.Time    `json:"declined_at,omitempty"`
	IsRecurring     bool          `json:"is_recurring"`
	RecurringWeeks  int           `json:"recurring_weeks"`
	Rows            []BookingSlot `json:"rows"`
}

// ToRows maps the aggregate to storage rows. The whole TotalPrice sits on the
// first row and every other row carries 0, so summing Price over a group's
// rows yields the group total.
func (g *BookingGroup) ToRows() []Booking {
	rows := make([]Booking, 0, len(g.Rows))
	for i, slot := range g.Rows {
		price := 0.0
		if i == 0 {
			price = g.TotalPrice
		}
		var dates []string
		if g.IsRecurring {
			dates = append(dates, g.Dates...)
		}
		rows = append(rows, Booking{
			ID:              slot.ID,
			GroupID:         g.GroupID,
			BookingNumber:   g.BookingNumber,
			CustomerName:    g.CustomerName,
			Phone:           g.Phone,
			Date:            slot.Date,
			Time:            slot.Time,
			DurationMinutes: g.DurationMinutes,
			SlotMinutes:     g.SlotMinutes,
			Status:          g.Status,
			Price:           price,
			CreatedAt:       g.CreatedAt,
			ExpiresAt:       g.ExpiresAt,
			ConfirmedAt:     g.ConfirmedAt,
			DeclinedAt:      g.DeclinedAt,
			IsRecurring:     g.IsRecurring,
			RecurringWeeks:  g.RecurringWeeks,
			RecurringDates:  dates,
			Seq:             i,
		})
	}
	return rows
}

// GroupRows folds storage rows back into aggregates, keeping the order in
// which each group first appears. Status is taken from the rows after lazy
// expiry; a group whose rows disagree reports the first row's status.
func GroupRows(rows []Booking, now time.Time) []BookingGroup {
	order := make([]string, 0)
	byKey := make(map[string][]Booking)
	for _, r := range rows {
		k := r.groupKey()
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	groups := make([]BookingGroup, 0, len(order))
	for _, k := range order {
		groups = append(groups, groupFromRows(byKey[k], now))
	}
	return groups
}

func groupFromRows(rows []Booking, now time.Time) BookingGroup {
	sorted := make([]Booking, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	first := sorted[0]
	g := BookingGroup{
		GroupID:         first.groupKey(),
		BookingNumber:   first.BookingNumber,
		CustomerName:    first.CustomerName,
		Phone:           first.Phone,
		DurationMinutes: first.DurationMinutes,
		SlotMinutes:     first.SlotMinutes,
		Status:          first.EffectiveStatus(now),
		CreatedAt:       first.CreatedAt,
		ExpiresAt:       first.ExpiresAt,
		ConfirmedAt:     first.ConfirmedAt,
		DeclinedAt:      first.DeclinedAt,
		IsRecurring:     first.IsRecurring,
		RecurringWeeks:  first.RecurringWeeks,
	}

	seenDate := make(map[string]bool)
	seenSlot := make(map[string]bool)
	for _, r := range sorted {
		g.TotalPrice += r.Price
		g.Rows = append(g.Rows, BookingSlot{ID: r.ID, Date: r.Date, Time: r.Time})
		if !seenDate[r.Date] {
			seenDate[r.Date] = true
			g.Dates = append(g.Dates, r.Date)
		}
		if r.Date == first.Date && !seenSlot[r.Time] {
			seenSlot[r.Time] = true
			g.Slots = append(g.Slots, r.Time)
		}
	}
	return g
}

// BookingFilter narrows admin listings. Empty fields match everything.
// Status is compared after lazy expiry at Now.
type BookingFilter struct {
	Date   string
	Status *BookingStatus
	Now    time.Time
	Limit  int
	Offset int
}

// BookingSummary is the customer-facing view returned after a submission.
type BookingSummary struct {
	BookingNumber       string        `json:"booking_number"`
	GroupID             string        `json:"group_id"`
	CustomerName        string        `json:"customer_name"`
	Phone               string        `json:"phone"`
	Dates               []string      `json:"dates"`
	Slots               []string      `json:"slots"`
	DurationMinutes     int           `json:"duration_minutes"`
	Status              BookingStatus `json:"status"`
	TotalPrice          float64       `json:"total_price"`
	Currency            string        `json:"currency,omitempty"`
	ExpiresAt           *time.Time    `json:"expires_at,omitempty"`
	PaymentInstructions string        `json:"payment_instructions,omitempty"`
}

func (g *BookingGroup) Summary(s Settings) BookingSummary {
	out := BookingSummary{
		BookingNumber:   g.BookingNumber,
		GroupID:         g.GroupID,
		CustomerName:    g.CustomerName,
		Phone:           g.Phone,
		Dates:           g.Dates,
		Slots:           g.Slots,
		DurationMinutes: g.DurationMinutes,
		Status:          g.Status,
		TotalPrice:      g.TotalPrice,
		Currency:        s.Currency,
		ExpiresAt:       g.ExpiresAt,
	}
	if g.Status == BookingPending {
		out.PaymentInstructions = s.PaymentInstructions
	}
	return out
}
