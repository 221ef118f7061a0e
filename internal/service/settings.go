package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/schedule"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

// SettingsStore holds the active settings. Readers get an immutable copy
// without locking; Update validates, persists and then swaps the value.
type SettingsStore struct {
	current  atomic.Pointer[domain.Settings]
	writeMu  sync.Mutex
	repo     repo.SettingsRepository
	eventBus events.Publisher
	validate *validator.Validate
}

func NewSettingsStore(r repo.SettingsRepository, bus events.Publisher) *SettingsStore {
	return &SettingsStore{repo: r, eventBus: bus, validate: newSettingsValidator()}
}

func newSettingsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Init loads persisted settings, seeding them with defaults on first start.
func (s *SettingsStore) Init(ctx context.Context, defaults domain.Settings) error {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Storage("load settings", err)
	}
	if stored != nil {
		if err := s.Validate(*stored); err != nil {
			logger.WarnContext(ctx, "Stored settings are invalid, using defaults", "error", err)
		} else {
			s.swap(*stored)
			return nil
		}
	}

	if err := s.Validate(defaults); err != nil {
		return fmt.Errorf("default settings: %w", err)
	}
	if err := s.repo.Save(ctx, defaults); err != nil {
		return domain.Storage("seed settings", err)
	}
	s.swap(defaults)
	return nil
}

// Current returns a copy of the active settings.
func (s *SettingsStore) Current() domain.Settings {
	p := s.current.Load()
	if p == nil {
		return domain.DefaultSettings()
	}
	return p.Clone()
}

// Update replaces the settings. Only one update runs at a time.
func (s *SettingsStore) Update(ctx context.Context, next domain.Settings, by string) (domain.Settings, error) {
	if err := s.Validate(next); err != nil {
		return domain.Settings{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Save(ctx, next); err != nil {
		return domain.Settings{}, domain.Storage("save settings", err)
	}
	s.swap(next)

	logger.InfoContext(ctx, "Settings updated", "updated_by", by)
	event := events.SettingsUpdatedEvent{UpdatedBy: by, UpdatedAt: time.Now()}
	if err := s.eventBus.Publish(ctx, events.SettingsUpdated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish settings updated event", "error", err)
	}
	return next.Clone(), nil
}

func (s *SettingsStore) swap(next domain.Settings) {
	c := next.Clone()
	s.current.Store(&c)
}

// Validate checks field rules and the rules that span fields.
func (s *SettingsStore) Validate(st domain.Settings) error {
	if err := s.validate.Struct(st); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return domain.Reject(domain.CodeInvalidSettings, "invalid %s (%s)", f.Field(), f.Tag())
		}
		return domain.Reject(domain.CodeInvalidSettings, "invalid settings: %v", err)
	}

	grid, err := schedule.DaySlots(st)
	if err != nil {
		return domain.Reject(domain.CodeInvalidSettings, "%v", err)
	}
	if len(grid) == 0 {
		return domain.Reject(domain.CodeInvalidSettings, "opening hours are shorter than one slot")
	}
	for _, d := range st.AllowedDurations {
		if d%st.SlotDurationMinutes != 0 {
			return domain.Reject(domain.CodeInvalidSettings, "duration %d is not a multiple of the %d minute slot", d, st.SlotDurationMinutes)
		}
	}
	if st.NightRateEnabled && st.NightStartTime == "" {
		return domain.Reject(domain.CodeInvalidSettings, "night_start_time is required when the night rate is enabled")
	}
	return nil
}

// SettingsFromConfig builds the seed settings from the environment.
func SettingsFromConfig(c config.BookingConfig) domain.Settings {
	s := domain.DefaultSettings()
	s.OpeningTime = c.OpeningTime
	s.ClosingTime = c.ClosingTime
	s.SlotDurationMinutes = c.SlotDurationMinutes
	if days := parseInts(c.WorkingDays); len(days) > 0 {
		s.WorkingDays = s.WorkingDays[:0]
		for _, d := range days {
			s.WorkingDays = append(s.WorkingDays, time.Weekday(d))
		}
	}
	if durations := parseInts(c.AllowedDurations); len(durations) > 0 {
		s.AllowedDurations = durations
	}
	s.MaxHoursPerPersonPerDay = c.MaxHoursPerPersonPerDay
	s.MaxRecurringWeeks = c.MaxRecurringWeeks
	s.PricePerHour = c.PricePerHour
	s.Currency = c.Currency
	s.RequirePaymentConfirmation = c.RequirePaymentConfirmation
	s.PaymentTimeoutMinutes = int(math.Round(c.PaymentTimeout.Minutes()))
	s.LeadTimeMinutes = int(math.Round(c.LeadTime.Minutes()))
	s.Timezone = c.Timezone
	return s
}

func parseInts(list string) []int {
	var out []int
	for _, part := range config.SplitList(list) {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
