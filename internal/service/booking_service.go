package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/availability"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/schedule"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/utils"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

type BookingService interface {
	Availability(ctx context.Context, date string) (*availability.Availability, error)
	CreateBooking(ctx context.Context, req availability.Request) (*domain.BookingSummary, error)
	CustomerBookings(ctx context.Context, phone string) ([]domain.BookingGroup, error)
	ListGroups(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingGroup, error)
	GetGroup(ctx context.Context, groupID string) (*domain.BookingGroup, error)
	Confirm(ctx context.Context, groupID string) (*domain.BookingGroup, error)
	Decline(ctx context.Context, groupID string) (*domain.BookingGroup, error)
	DeleteGroup(ctx context.Context, groupID string) error
	DeleteRow(ctx context.Context, id string) error
	ExpireStale(ctx context.Context) (int, error)
}

// SettingsProvider hands out the settings value used for one request.
type SettingsProvider interface {
	Current() domain.Settings
}

type bookingService struct {
	bookingRepo repo.BookingRepository
	settings    SettingsProvider
	eventBus    events.Publisher
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repo.BookingRepository,
	settings SettingsProvider,
	eventBus events.Publisher,
) BookingService {
	return newBookingService(bookingRepo, settings, eventBus, time.Now)
}

func newBookingService(bookingRepo repo.BookingRepository, settings SettingsProvider, eventBus events.Publisher, now func() time.Time) *bookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		settings:    settings,
		eventBus:    eventBus,
		now:         now,
	}
}

func (s *bookingService) Availability(ctx context.Context, date string) (*availability.Availability, error) {
	if _, err := time.Parse(schedule.DateLayout, date); err != nil {
		return nil, domain.Reject(domain.CodeMissingData, "date must be YYYY-MM-DD")
	}
	rows, err := s.bookingRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, domain.Storage("list bookings by date", err)
	}
	day := availability.Day(date, rows, s.now(), s.settings.Current())
	return &day, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, req availability.Request) (*domain.BookingSummary, error) {
	settings := s.settings.Current()
	now := s.now()
	req.Phone = utils.NormalizePhone(req.Phone)
	req.Name = utils.NormalizeString(req.Name)

	// Each date is read separately so recurring weeks see their own bookings
	lookup := func(date string) (availability.Snapshot, error) {
		all, err := s.bookingRepo.ListByDate(ctx, date)
		if err != nil {
			return availability.Snapshot{}, domain.Storage("list bookings by date", err)
		}
		mine, err := s.bookingRepo.ListByPhoneAndDate(ctx, req.Phone, date)
		if err != nil {
			return availability.Snapshot{}, domain.Storage("list customer bookings", err)
		}
		return availability.Snapshot{Bookings: all, CustomerBookings: mine}, nil
	}

	group, err := availability.ValidateRequest(req, lookup, settings, now)
	if err != nil {
		return nil, err
	}

	// The unique index decides races the snapshot could not see
	if err := s.bookingRepo.InsertBatch(ctx, group.ToRows(), now); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			logger.InfoContext(ctx, "Booking lost slot race", "date", req.Date, "time", req.Time)
			return nil, err
		}
		return nil, domain.Storage("insert booking rows", err)
	}

	logger.InfoContext(ctx, "Booking created",
		"group_id", group.GroupID,
		"booking_number", group.BookingNumber,
		"rows", len(group.Rows),
		"status", group.Status,
	)
	s.publish(ctx, events.BookingCreated, group, "")

	summary := group.Summary(settings)
	return &summary, nil
}

func (s *bookingService) CustomerBookings(ctx context.Context, phone string) ([]domain.BookingGroup, error) {
	phone = utils.NormalizePhone(phone)
	if !utils.IsValidPhone(phone) {
		return nil, domain.Reject(domain.CodeMissingData, "a valid phone number is required")
	}
	now := s.now()
	rows, err := s.bookingRepo.ListByPhone(ctx, phone, schedule.Today(now, s.settings.Current()))
	if err != nil {
		return nil, domain.Storage("list bookings by phone", err)
	}
	return domain.GroupRows(rows, now), nil
}

func (s *bookingService) ListGroups(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingGroup, error) {
	if filter.Date != "" {
		if _, err := time.Parse(schedule.DateLayout, filter.Date); err != nil {
			return nil, domain.Reject(domain.CodeMissingData, "date must be YYYY-MM-DD")
		}
	}
	now := s.now()
	filter.Now = now
	rows, err := s.bookingRepo.ListGroups(ctx, filter)
	if err != nil {
		return nil, domain.Storage("list booking groups", err)
	}
	return domain.GroupRows(rows, now), nil
}

func (s *bookingService) GetGroup(ctx context.Context, groupID string) (*domain.BookingGroup, error) {
	rows, err := s.bookingRepo.ListGroup(ctx, groupID)
	if err != nil {
		return nil, domain.Storage("get booking group", err)
	}
	if len(rows) == 0 {
		// Admins may pass a row id instead of a group id
		row, err := s.bookingRepo.GetByID(ctx, groupID)
		if err != nil {
			return nil, domain.Storage("get booking", err)
		}
		if row == nil {
			return nil, domain.ErrNotFound
		}
		if rows, err = s.bookingRepo.ListGroup(ctx, row.GroupID); err != nil {
			return nil, domain.Storage("get booking group", err)
		}
		if len(rows) == 0 {
			return nil, domain.ErrNotFound
		}
	}
	groups := domain.GroupRows(rows, s.now())
	return &groups[0], nil
}

func (s *bookingService) Confirm(ctx context.Context, groupID string) (*domain.BookingGroup, error) {
	return s.transition(ctx, groupID, domain.BookingConfirmed, events.BookingConfirmed)
}

func (s *bookingService) Decline(ctx context.Context, groupID string) (*domain.BookingGroup, error) {
	return s.transition(ctx, groupID, domain.BookingDeclined, events.BookingDeclined)
}

func (s *bookingService) transition(ctx context.Context, groupID string, to domain.BookingStatus, subject string) (*domain.BookingGroup, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.Status.CanTransitionTo(to) {
		return nil, domain.ErrInvalidTransition
	}

	now := s.now()
	n, err := s.bookingRepo.UpdateStatus(ctx, group.GroupID, domain.BookingPending, to, now)
	if err != nil {
		return nil, domain.Storage("update booking status", err)
	}
	if n == 0 {
		// Expired or changed between the read and the update
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.GetGroup(ctx, group.GroupID)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Booking status changed", "group_id", updated.GroupID, "status", to, "rows", n)
	s.publish(ctx, subject, updated, "")
	return updated, nil
}

func (s *bookingService) DeleteGroup(ctx context.Context, groupID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	n, err := s.bookingRepo.DeleteGroup(ctx, group.GroupID)
	if err != nil {
		return domain.Storage("delete booking group", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	logger.InfoContext(ctx, "Booking group deleted", "group_id", group.GroupID, "rows", n)
	s.publish(ctx, events.BookingDeleted, group, "")
	return nil
}

func (s *bookingService) DeleteRow(ctx context.Context, id string) error {
	row, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return domain.Storage("get booking", err)
	}
	if row == nil {
		return domain.ErrNotFound
	}
	ok, err := s.bookingRepo.Delete(ctx, id)
	if err != nil {
		return domain.Storage("delete booking", err)
	}
	if !ok {
		return domain.ErrNotFound
	}

	logger.InfoContext(ctx, "Booking row deleted", "id", id, "group_id", row.GroupID)
	group := domain.GroupRows([]domain.Booking{*row}, s.now())[0]
	s.publish(ctx, events.BookingDeleted, &group, id)
	return nil
}

// ExpireStale runs the pending -> expired sweep and reports expired groups.
func (s *bookingService) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.bookingRepo.ExpirePending(ctx, now)
	if err != nil {
		return 0, domain.Storage("expire pending bookings", err)
	}
	groups := domain.GroupRows(rows, now)
	for i := range groups {
		s.publish(ctx, events.BookingExpired, &groups[i], "")
	}
	if len(groups) > 0 {
		logger.InfoContext(ctx, "Expired pending bookings", "groups", len(groups), "rows", len(rows))
	}
	return len(groups), nil
}

func (s *bookingService) publish(ctx context.Context, subject string, g *domain.BookingGroup, rowID string) {
	event := events.BookingEvent{
		GroupID:         g.GroupID,
		BookingNumber:   g.BookingNumber,
		CustomerName:    g.CustomerName,
		Phone:           g.Phone,
		Dates:           g.Dates,
		Slots:           g.Slots,
		DurationMinutes: g.DurationMinutes,
		Status:          string(g.Status),
		TotalPrice:      g.TotalPrice,
		RowID:           rowID,
		OccurredAt:      s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, fmt.Sprintf("Failed to publish %s event", subject), "error", err, "group_id", g.GroupID)
	}
}
