package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo/memory"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
)

func TestSettingsStoreSeedsDefaults(t *testing.T) {
	r := memory.NewSettingsRepo()
	store := NewSettingsStore(r, events.NewMemoryBus())
	if err := store.Init(context.Background(), testSettings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved, _ := r.Load(context.Background())
	if saved == nil || saved.OpeningTime != "08:00" {
		t.Fatalf("expected defaults to be persisted, got %+v", saved)
	}
}

func TestSettingsStoreLoadsPersisted(t *testing.T) {
	r := memory.NewSettingsRepo()
	stored := testSettings()
	stored.PricePerHour = 350
	_ = r.Save(context.Background(), stored)

	store := NewSettingsStore(r, events.NewMemoryBus())
	if err := store.Init(context.Background(), testSettings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Current().PricePerHour != 350 {
		t.Fatalf("expected persisted price, got %v", store.Current().PricePerHour)
	}
}

func TestSettingsStoreRejectsInvalid(t *testing.T) {
	store := NewSettingsStore(memory.NewSettingsRepo(), events.NewMemoryBus())
	_ = store.Init(context.Background(), testSettings())

	cases := map[string]func(*domain.Settings){
		"bad clock":         func(s *domain.Settings) { s.OpeningTime = "8am" },
		"zero slot":         func(s *domain.Settings) { s.SlotDurationMinutes = 0 },
		"off-grid duration": func(s *domain.Settings) { s.AllowedDurations = []int{45} },
		"no working days":   func(s *domain.Settings) { s.WorkingDays = nil },
		"bad timezone":      func(s *domain.Settings) { s.Timezone = "Mars/Olympus" },
		"night without time": func(s *domain.Settings) {
			s.NightRateEnabled = true
			s.NightStartTime = ""
		},
		"shorter than a slot": func(s *domain.Settings) {
			s.OpeningTime = "08:00"
			s.ClosingTime = "08:15"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			next := testSettings()
			mutate(&next)
			_, err := store.Update(context.Background(), next, "admin")
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Code != domain.CodeInvalidSettings {
				t.Fatalf("expected INVALID_SETTINGS, got %v", err)
			}
			if store.Current().OpeningTime != "08:00" || store.Current().SlotDurationMinutes != 30 {
				t.Fatal("rejected update must not change the active settings")
			}
		})
	}
}

func TestSettingsStoreUpdateSwapsAtomically(t *testing.T) {
	store := NewSettingsStore(memory.NewSettingsRepo(), events.NewMemoryBus())
	_ = store.Init(context.Background(), testSettings())

	a := testSettings()
	a.OpeningTime, a.ClosingTime = "08:00", "20:00"
	b := testSettings()
	b.OpeningTime, b.ClosingTime = "16:00", "02:00"

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			cur := store.Current()
			pair := cur.OpeningTime + "-" + cur.ClosingTime
			if pair != "08:00-23:00" && pair != "08:00-20:00" && pair != "16:00-02:00" {
				t.Errorf("observed torn settings %s", pair)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		next := a
		if i%2 == 1 {
			next = b
		}
		if _, err := store.Update(context.Background(), next, "admin"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestCurrentReturnsCopy(t *testing.T) {
	store := NewSettingsStore(memory.NewSettingsRepo(), events.NewMemoryBus())
	_ = store.Init(context.Background(), testSettings())

	s := store.Current()
	s.AllowedDurations[0] = 999
	if store.Current().AllowedDurations[0] == 999 {
		t.Fatal("mutating a copy must not change the store")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.BookingConfig{
		OpeningTime:             "16:00",
		ClosingTime:             "02:00",
		SlotDurationMinutes:     60,
		WorkingDays:             "5,6",
		AllowedDurations:        "60,120",
		MaxHoursPerPersonPerDay: 3,
		MaxRecurringWeeks:       8,
		PricePerHour:            250,
		Currency:                "EGP",
		PaymentTimeout:          90 * time.Minute,
		LeadTime:                15 * time.Minute,
		Timezone:                "Africa/Cairo",
	})
	if len(s.WorkingDays) != 2 || s.WorkingDays[0] != time.Friday {
		t.Fatalf("unexpected working days %v", s.WorkingDays)
	}
	if s.PaymentTimeoutMinutes != 90 || s.LeadTimeMinutes != 15 {
		t.Fatalf("unexpected minutes %d/%d", s.PaymentTimeoutMinutes, s.LeadTimeMinutes)
	}
	store := NewSettingsStore(memory.NewSettingsRepo(), events.NewMemoryBus())
	if err := store.Validate(s); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
}
