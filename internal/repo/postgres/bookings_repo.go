package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
)

// activeSlotIndex is the partial unique index on (booking_date, slot_time)
// over pending and confirmed rows.
const activeSlotIndex = "bookings_active_slot_uniq"

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

var _ repo.BookingRepository = (*BookingRepoImpl)(nil)

const bookingCols = `id, group_id, booking_number,
customer_name, phone,
to_char(booking_date, 'YYYY-MM-DD'), slot_time, duration_minutes, slot_minutes,
status, price::float8, seq,
is_recurring, recurring_weeks, recurring_dates,
created_at, expires_at, confirmed_at, declined_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.GroupID, &b.BookingNumber,
		&b.CustomerName, &b.Phone,
		&b.Date, &b.Time, &b.DurationMinutes, &b.SlotMinutes,
		&b.Status, &b.Price, &b.Seq,
		&b.IsRecurring, &b.RecurringWeeks, &b.RecurringDates,
		&b.CreatedAt, &b.ExpiresAt, &b.ConfirmedAt, &b.DeclinedAt,
	)
}

func collect(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepoImpl) query(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *BookingRepoImpl) ListByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE booking_date=$1::date ORDER BY slot_time`
	return r.query(ctx, q, date)
}

func (r *BookingRepoImpl) ListByPhoneAndDate(ctx context.Context, phone, date string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE phone=$1 AND booking_date=$2::date ORDER BY seq`
	return r.query(ctx, q, phone, date)
}

func (r *BookingRepoImpl) ListByPhone(ctx context.Context, phone, fromDate string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	WHERE phone=$1 AND booking_date >= $2::date
	ORDER BY created_at DESC, group_id, seq`
	return r.query(ctx, q, phone, fromDate)
}

func (r *BookingRepoImpl) ListGroups(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	limit, offset := repo.NormalizePage(f.Limit, f.Offset)
	status := ""
	if f.Status != nil {
		status = string(*f.Status)
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	const q = `WITH page AS (
		SELECT group_id, MIN(created_at) AS first_created
		FROM bookings
		WHERE ($1 = '' OR booking_date = NULLIF($1, '')::date)
		  AND ($2 = '' OR CASE
		        WHEN status = 'pending' AND expires_at IS NOT NULL AND expires_at < $5 THEN 'expired'
		        ELSE status END = $2)
		GROUP BY group_id
		ORDER BY MIN(created_at) DESC, group_id
		LIMIT $3 OFFSET $4
	)
	SELECT ` + bookingCols + ` FROM bookings
	JOIN page USING (group_id)
	ORDER BY page.first_created DESC, group_id, seq`
	return r.query(ctx, q, f.Date, status, limit, offset, now)
}

func (r *BookingRepoImpl) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := scanBooking(r.pool.QueryRow(ctx, q, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepoImpl) ListGroup(ctx context.Context, groupID string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE group_id=$1 ORDER BY seq`
	return r.query(ctx, q, groupID)
}

func (r *BookingRepoImpl) InsertBatch(ctx context.Context, rows []domain.Booking, now time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dates := make([]string, 0, len(rows))
	seen := make(map[string]bool)
	for _, b := range rows {
		if !seen[b.Date] {
			seen[b.Date] = true
			dates = append(dates, b.Date)
		}
	}

	// Release slots still held by overdue pending rows.
	const expire = `UPDATE bookings SET status='expired'
	WHERE status='pending' AND expires_at IS NOT NULL AND expires_at < $1
	  AND booking_date = ANY($2::text[]::date[])`
	if _, err := tx.Exec(ctx, expire, now, dates); err != nil {
		return err
	}

	const insert = `INSERT INTO bookings (
		id, group_id, booking_number,
		customer_name, phone,
		booking_date, slot_time, duration_minutes, slot_minutes,
		status, price, seq,
		is_recurring, recurring_weeks, recurring_dates,
		created_at, expires_at, confirmed_at, declined_at
	) VALUES ($1,$2,$3,$4,$5,$6::date,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	batch := &pgx.Batch{}
	for _, b := range rows {
		batch.Queue(insert,
			b.ID, b.GroupID, b.BookingNumber,
			b.CustomerName, b.Phone,
			b.Date, b.Time, b.DurationMinutes, b.SlotMinutes,
			b.Status, b.Price, b.Seq,
			b.IsRecurring, b.RecurringWeeks, b.RecurringDates,
			b.CreatedAt, b.ExpiresAt, b.ConfirmedAt, b.DeclinedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapInsertErr(err)
		}
	}
	if err := br.Close(); err != nil {
		return mapInsertErr(err)
	}
	return tx.Commit(ctx)
}

func mapInsertErr(err error) error {
	if IsSlotConflict(err) {
		return domain.ErrSlotTaken
	}
	return err
}

// IsSlotConflict reports whether err is a unique violation on the active slot index.
func IsSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == activeSlotIndex
}

func (r *BookingRepoImpl) UpdateStatus(ctx context.Context, groupOrID string, from, to domain.BookingStatus, at time.Time) (int64, error) {
	// A pending row past its expiry can only move to expired.
	q := `UPDATE bookings SET status=$3,
		confirmed_at = CASE WHEN $3 = 'confirmed' THEN $4 ELSE confirmed_at END,
		declined_at  = CASE WHEN $3 = 'declined'  THEN $4 ELSE declined_at END
	WHERE (group_id=$1 OR id=$1) AND status=$2`
	if to != domain.BookingExpired {
		q += ` AND (expires_at IS NULL OR expires_at >= $4)`
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, groupOrID, from, to, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes one row. If the row carried its group's price, the price
// moves to the next row of the group so the group total is kept.
func (r *BookingRepoImpl) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var groupID string
	var price float64
	err = tx.QueryRow(ctx, `DELETE FROM bookings WHERE id=$1 RETURNING group_id, price::float8`, id).Scan(&groupID, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if price != 0 {
		const carry = `UPDATE bookings SET price = price + $2
		WHERE id = (SELECT id FROM bookings WHERE group_id=$1 ORDER BY seq LIMIT 1)`
		if _, err := tx.Exec(ctx, carry, groupID, price); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

func (r *BookingRepoImpl) DeleteGroup(ctx context.Context, groupID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE group_id=$1`, groupID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *BookingRepoImpl) ExpirePending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	const q = `UPDATE bookings SET status='expired'
	WHERE status='pending' AND expires_at IS NOT NULL AND expires_at < $1
	RETURNING ` + bookingCols
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
