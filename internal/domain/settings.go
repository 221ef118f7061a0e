package domain

import "time"

// Settings is the site configuration read by the booking engine. Values are
// treated as immutable: readers get a copy and updates swap the whole value.
type Settings struct {
	SiteName     string `json:"site_name"`
	ContactPhone string `json:"contact_phone"`

	OpeningTime         string         `json:"opening_time" validate:"required,hhmm"`
	ClosingTime         string         `json:"closing_time" validate:"required,hhmm"`
	SlotDurationMinutes int            `json:"slot_duration_minutes" validate:"min=5,max=720"`
	WorkingDays         []time.Weekday `json:"working_days" validate:"required,min=1,max=7,dive,min=0,max=6"`
	AllowedDurations    []int          `json:"allowed_durations" validate:"required,min=1,dive,gt=0"`

	MaxHoursPerPersonPerDay float64 `json:"max_hours_per_person_per_day" validate:"gt=0,lte=24"`
	MaxRecurringWeeks       int     `json:"max_recurring_weeks" validate:"min=1,max=52"`

	PricePerHour      float64 `json:"price_per_hour" validate:"gte=0"`
	NightRateEnabled  bool    `json:"night_rate_enabled"`
	NightPricePerHour float64 `json:"night_price_per_hour" validate:"gte=0"`
	NightStartTime    string  `json:"night_start_time" validate:"omitempty,hhmm"`
	Currency          string  `json:"currency" validate:"max=8"`

	PaymentInstructions        string `json:"payment_instructions"`
	RequirePaymentConfirmation bool   `json:"require_payment_confirmation"`
	PaymentTimeoutMinutes      int    `json:"payment_timeout_minutes" validate:"min=0"`

	LeadTimeMinutes int    `json:"lead_time_minutes" validate:"min=0"`
	Timezone        string `json:"timezone" validate:"required,timezone"`
}

func DefaultSettings() Settings {
	return Settings{
		SiteName:                   "HagzYomi",
		OpeningTime:                "08:00",
		ClosingTime:                "23:00",
		SlotDurationMinutes:        30,
		WorkingDays:                []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		AllowedDurations:           []int{30, 60, 90, 120},
		MaxHoursPerPersonPerDay:    2,
		MaxRecurringWeeks:          4,
		PricePerHour:               200,
		Currency:                   "EGP",
		RequirePaymentConfirmation: true,
		PaymentTimeoutMinutes:      60,
		LeadTimeMinutes:            30,
		Timezone:                   "Africa/Cairo",
	}
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (s Settings) LeadTime() time.Duration {
	return time.Duration(s.LeadTimeMinutes) * time.Minute
}

func (s Settings) PaymentTimeout() time.Duration {
	return time.Duration(s.PaymentTimeoutMinutes) * time.Minute
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.WorkingDays = append([]time.Weekday(nil), s.WorkingDays...)
	out.AllowedDurations = append([]int(nil), s.AllowedDurations...)
	return out
}

// PublicSettings is the subset shown to customers.
type PublicSettings struct {
	SiteName            string         `json:"site_name"`
	ContactPhone        string         `json:"contact_phone,omitempty"`
	OpeningTime         string         `json:"opening_time"`
	ClosingTime         string         `json:"closing_time"`
	SlotDurationMinutes int            `json:"slot_duration_minutes"`
	WorkingDays         []time.Weekday `json:"working_days"`
	AllowedDurations    []int          `json:"allowed_durations"`
	MaxRecurringWeeks   int            `json:"max_recurring_weeks"`
	PricePerHour        float64        `json:"price_per_hour"`
	NightRateEnabled    bool           `json:"night_rate_enabled"`
	NightPricePerHour   float64        `json:"night_price_per_hour,omitempty"`
	NightStartTime      string         `json:"night_start_time,omitempty"`
	Currency            string         `json:"currency"`
	PaymentInstructions string         `json:"payment_instructions,omitempty"`
}

func (s Settings) Public() PublicSettings {
	c := s.Clone()
	return PublicSettings{
		SiteName:            c.SiteName,
		ContactPhone:        c.ContactPhone,
		OpeningTime:         c.OpeningTime,
		ClosingTime:         c.ClosingTime,
		SlotDurationMinutes: c.SlotDurationMinutes,
		WorkingDays:         c.WorkingDays,
		AllowedDurations:    c.AllowedDurations,
		MaxRecurringWeeks:   c.MaxRecurringWeeks,
		PricePerHour:        c.PricePerHour,
		NightRateEnabled:    c.NightRateEnabled,
		NightPricePerHour:   c.NightPricePerHour,
		NightStartTime:      c.NightStartTime,
		Currency:            c.Currency,
		PaymentInstructions: c.PaymentInstructions,
	}
}
