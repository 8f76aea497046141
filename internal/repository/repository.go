// Package repository implements the booking store used by the availability
// engine and the lifecycle service. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes that mean "another transaction won the race".
const (
	codeSerializationFailure = "40001"
	codeExclusionViolation   = "23P01"
)

// Tx is the set of operations available inside one atomic unit.
type Tx interface {
	ConfirmedOverlapping(ctx context.Context, r model.Range, excludeID string) ([]model.Booking, error)
	GetForUpdate(ctx context.Context, id string) (*model.Booking, error)
	Insert(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error
}

const bookingColumns = `id, booking_date, check_in_date, check_out_date, payment_status,
	payment_type, payment_amount, guest_name, guest_email, guest_phone, guest_address,
	total_guests_adults, total_guests_children, id_type, id_number, purpose_of_stay,
	created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithinTx runs fn inside a SERIALIZABLE transaction.
//
// The availability check and the write that depends on it must see the same
// snapshot, otherwise two requests can both observe "free" and both commit:
//
//	request A: SELECT confirmed overlapping [15,20)  → none
//	request B: SELECT confirmed overlapping [17,22)  → none
//	request A: UPDATE payment_status = 1             → commit
//	request B: UPDATE payment_status = 1             → commit   (double booked)
//
// Under SERIALIZABLE the second committer fails with 40001. The exclusion
// constraint on confirmed date ranges is the backstop (23P01). Both surface
// as model.ErrConcurrentUpdate so the caller can rerun the unit and report a
// normal conflict.
func (r *BookingRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, &pgTx{q: tx}); err != nil {
		return translate(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Get returns a single booking or model.ErrNotFound.
func (r *BookingRepository) Get(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, r.db, id, false)
}

// List returns bookings ordered by check-in date.
func (r *BookingRepository) List(ctx context.Context, f model.ListFilter) ([]model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings`
	var args []any
	if f.Status != nil {
		sql += ` WHERE payment_status = $1`
		args = append(args, int16(*f.Status))
	}
	sql += ` ORDER BY check_in_date ASC, created_at ASC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

// pgTx adapts a pgx transaction to Tx.
type pgTx struct {
	q querier
}

func (t *pgTx) ConfirmedOverlapping(ctx context.Context, rng model.Range, excludeID string) ([]model.Booking, error) {
	// Half-open intersection: existing.check_in < end AND existing.check_out > start.
	sql := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = ANY($1)
		  AND check_in_date < $2
		  AND check_out_date > $3`
	args := []any{confirmedCodes(), rng.End.Time(), rng.Start.Time()}
	if excludeID != "" {
		if _, err := uuid.Parse(excludeID); err == nil {
			sql += ` AND id <> $4`
			args = append(args, excludeID)
		}
	}
	sql += ` ORDER BY check_in_date ASC`

	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}
	return collectBookings(rows)
}

func (t *pgTx) GetForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, t.q, id, true)
}

func (t *pgTx) Insert(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID, b.BookingDate.Time(), b.CheckInDate.Time(), b.CheckOutDate.Time(), int16(b.PaymentStatus),
		b.PaymentType, b.PaymentAmount, b.GuestName, b.GuestEmail, b.GuestPhone, b.GuestAddress,
		b.TotalGuestsAdults, b.TotalGuestsChildren, b.IDType, b.IDNumber, b.PurposeOfStay,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE bookings SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		int16(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func getBooking(ctx context.Context, q querier, id string, lock bool) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b                            model.Booking
		bookingDate, checkIn, chkOut time.Time
		status                       int16
	)
	err := row.Scan(
		&b.ID, &bookingDate, &checkIn, &chkOut, &status,
		&b.PaymentType, &b.PaymentAmount, &b.GuestName, &b.GuestEmail, &b.GuestPhone, &b.GuestAddress,
		&b.TotalGuestsAdults, &b.TotalGuestsChildren, &b.IDType, &b.IDNumber, &b.PurposeOfStay,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BookingDate = model.DateOf(bookingDate)
	b.CheckInDate = model.DateOf(checkIn)
	b.CheckOutDate = model.DateOf(chkOut)
	b.PaymentStatus = model.PaymentStatus(status)
	return &b, nil
}

func confirmedCodes() []int16 {
	codes := make([]int16, 0, len(model.ConfirmedStatuses))
	for _, s := range model.ConfirmedStatuses {
		codes = append(codes, int16(s))
	}
	return codes
}

// translate maps lost-race Postgres errors to model.ErrConcurrentUpdate and
// leaves everything else untouched.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeExclusionViolation:
			return fmt.Errorf("%w: %s", model.ErrConcurrentUpdate, strings.TrimSpace(pgErr.Message))
		}
	}
	return err
}
