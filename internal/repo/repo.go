package repo

import (
	"context"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
)

// BookingRepository stores booking rows. Implementations must reject a
// second active row for the same (date, time) with domain.ErrSlotTaken.
type BookingRepository interface {
	ListByDate(ctx context.Context, date string) ([]domain.Booking, error)
	ListByPhoneAndDate(ctx context.Context, phone, date string) ([]domain.Booking, error)
	// ListByPhone returns the customer's rows on or after fromDate.
	ListByPhone(ctx context.Context, phone, fromDate string) ([]domain.Booking, error)
	// ListGroups pages over groups and returns every row of each group on the page.
	ListGroups(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListGroup(ctx context.Context, groupID string) ([]domain.Booking, error)
	// InsertBatch writes all rows or none. Pending rows past their expiry on
	// the same dates are expired first so they no longer hold their slot.
	InsertBatch(ctx context.Context, rows []domain.Booking, now time.Time) error
	// UpdateStatus moves every row matching groupOrID from one status to
	// another and returns how many rows changed.
	UpdateStatus(ctx context.Context, groupOrID string, from, to domain.BookingStatus, at time.Time) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteGroup(ctx context.Context, groupID string) (int64, error)
	// ExpirePending marks overdue pending rows expired and returns them.
	ExpirePending(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

// SettingsRepository persists the site settings. Load returns nil when
// nothing has been saved yet.
type SettingsRepository interface {
	Load(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizePage clamps paging values the same way for every backend.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
