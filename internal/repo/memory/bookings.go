package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
)

// BookingRepo is an in-process BookingRepository. The mutex plays the role
// of the database unique index: an insert checks and writes under one lock.
type BookingRepo struct {
	mu   sync.Mutex
	rows []domain.Booking
}

func NewBookingRepo() *BookingRepo { return &BookingRepo{} }

var _ repo.BookingRepository = (*BookingRepo)(nil)

func clone(b domain.Booking) domain.Booking {
	if b.RecurringDates != nil {
		b.RecurringDates = append([]string(nil), b.RecurringDates...)
	}
	return b
}

func (r *BookingRepo) filter(keep func(*domain.Booking) bool) []domain.Booking {
	var out []domain.Booking
	for i := range r.rows {
		if keep(&r.rows[i]) {
			out = append(out, clone(r.rows[i]))
		}
	}
	return out
}

func (r *BookingRepo) ListByDate(_ context.Context, date string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(b *domain.Booking) bool { return b.Date == date })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *BookingRepo) ListByPhoneAndDate(_ context.Context, phone, date string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(b *domain.Booking) bool { return b.Phone == phone && b.Date == date }), nil
}

func (r *BookingRepo) ListByPhone(_ context.Context, phone, fromDate string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(b *domain.Booking) bool { return b.Phone == phone && b.Date >= fromDate })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BookingRepo) ListGroups(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	limit, offset := repo.NormalizePage(f.Limit, f.Offset)
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	type groupInfo struct {
		id    string
		first time.Time
	}
	var order []groupInfo
	seen := make(map[string]bool)
	for i := range r.rows {
		b := &r.rows[i]
		if f.Date != "" && b.Date != f.Date {
			continue
		}
		if f.Status != nil && b.EffectiveStatus(now) != *f.Status {
			continue
		}
		if seen[b.GroupID] {
			continue
		}
		seen[b.GroupID] = true
		order = append(order, groupInfo{id: b.GroupID, first: b.CreatedAt})
	}
	sort.SliceStable(order, func(i, j int) bool {
		if !order[i].first.Equal(order[j].first) {
			return order[i].first.After(order[j].first)
		}
		return order[i].id < order[j].id
	})

	if offset >= len(order) {
		return []domain.Booking{}, nil
	}
	end := offset + limit
	if end > len(order) {
		end = len(order)
	}

	var out []domain.Booking
	for _, g := range order[offset:end] {
		rows := r.filter(func(b *domain.Booking) bool { return b.GroupID == g.id })
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
		out = append(out, rows...)
	}
	return out, nil
}

func (r *BookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			b := clone(r.rows[i])
			return &b, nil
		}
	}
	return nil, nil
}

func (r *BookingRepo) ListGroup(_ context.Context, groupID string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(b *domain.Booking) bool { return b.GroupID == groupID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *BookingRepo) InsertBatch(_ context.Context, rows []domain.Booking, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dates := make(map[string]bool)
	for _, b := range rows {
		dates[b.Date] = true
	}
	for i := range r.rows {
		b := &r.rows[i]
		if dates[b.Date] && b.Status == domain.BookingPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			b.Status = domain.BookingExpired
		}
	}

	held := make(map[string]bool)
	for i := range r.rows {
		b := &r.rows[i]
		if b.Status == domain.BookingPending || b.Status == domain.BookingConfirmed {
			held[b.Date+" "+b.Time] = true
		}
	}
	for _, b := range rows {
		key := b.Date + " " + b.Time
		if held[key] {
			return domain.ErrSlotTaken
		}
		if b.Status == domain.BookingPending || b.Status == domain.BookingConfirmed {
			held[key] = true
		}
	}

	for _, b := range rows {
		r.rows = append(r.rows, clone(b))
	}
	return nil
}

func (r *BookingRepo) UpdateStatus(_ context.Context, groupOrID string, from, to domain.BookingStatus, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i := range r.rows {
		b := &r.rows[i]
		if b.GroupID != groupOrID && b.ID != groupOrID {
			continue
		}
		if b.Status != from {
			continue
		}
		if to != domain.BookingExpired && b.ExpiresAt != nil && b.ExpiresAt.Before(at) {
			continue
		}
		b.Status = to
		stamp := at
		switch to {
		case domain.BookingConfirmed:
			b.ConfirmedAt = &stamp
		case domain.BookingDeclined:
			b.DeclinedAt = &stamp
		}
		n++
	}
	return n, nil
}

func (r *BookingRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		removed := r.rows[i]
		r.rows = append(r.rows[:i], r.rows[i+1:]...)
		if removed.Price != 0 {
			r.carryPrice(removed.GroupID, removed.Price)
		}
		return true, nil
	}
	return false, nil
}

// carryPrice adds price to the lowest-seq row left in the group.
func (r *BookingRepo) carryPrice(groupID string, price float64) {
	target := -1
	for i := range r.rows {
		if r.rows[i].GroupID != groupID {
			continue
		}
		if target < 0 || r.rows[i].Seq < r.rows[target].Seq {
			target = i
		}
	}
	if target >= 0 {
		r.rows[target].Price += price
	}
}

func (r *BookingRepo) DeleteGroup(_ context.Context, groupID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.rows[:0]
	var n int64
	for _, b := range r.rows {
		if b.GroupID == groupID {
			n++
			continue
		}
		kept = append(kept, b)
	}
	r.rows = kept
	return n, nil
}

func (r *BookingRepo) ExpirePending(_ context.Context, now time.Time) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Booking
	for i := range r.rows {
		b := &r.rows[i]
		if b.Status == domain.BookingPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			b.Status = domain.BookingExpired
			out = append(out, clone(*b))
		}
	}
	return out, nil
}
