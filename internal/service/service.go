// Package service implements the booking lifecycle: date rules, creation and
// payment-status transitions, each gated by the availability engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/availability"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/notify"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Booking rules.
const (
	MaxStayNights       = 30
	MaxAdvanceDays      = 365
	DefaultCalendarDays = 30
	MaxCalendarDays     = 366

	maxAttempts = 3
)

var tracer = otel.Tracer("github.com/anonymous-error404/FarmHouse-Website-Backend/internal/service")

// BookingStore is the persistence the service relies on. WithinTx must run
// fn as one atomic unit: the availability check and the write that depends
// on it either both see the same state or the unit fails with
// model.ErrConcurrentUpdate.
type BookingStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, f model.ListFilter) ([]model.Booking, error)
}

// CalendarCache caches FreeRanges for the public calendar. Entries live under
// a generation that Invalidate advances.
type CalendarCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, start, end model.Date) ([]model.Period, bool, error)
	Set(ctx context.Context, gen int64, start, end model.Date, periods []model.Period) error
	Invalidate(ctx context.Context) error
}

// CreateResult is the outcome of a successful CreateBooking. NotifyErr is
// set when the booking was stored but a notification failed.
type CreateResult struct {
	Booking   *model.Booking
	NotifyErr error
}

// TransitionResult is the outcome of a successful TransitionPaymentStatus.
// NotifyErr is set when the status was committed but a notification failed.
type TransitionResult struct {
	Booking   *model.Booking
	NotifyErr error
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithCalendarCache enables the calendar cache.
func WithCalendarCache(c CalendarCache) Option {
	return func(s *BookingService) { s.cache = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// WithLocation sets the timezone that decides "today".
func WithLocation(loc *time.Location) Option {
	return func(s *BookingService) { s.loc = loc }
}

// BookingService orchestrates booking operations.
type BookingService struct {
	store    BookingStore
	notifier notify.Notifier
	cache    CalendarCache
	log      *logrus.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(store BookingStore, notifier notify.Notifier, log *logrus.Logger, opts ...Option) *BookingService {
	s := &BookingService{
		store:    store,
		notifier: notifier,
		log:      log,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the service timezone.
func (s *BookingService) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// ValidateDates applies the stay rules and returns a *model.ValidationError
// naming the first violated rule.
func (s *BookingService) ValidateDates(checkIn, checkOut model.Date) error {
	today := s.Today()
	switch {
	case checkIn.IsZero() || checkOut.IsZero():
		return model.Invalidf("check-in and check-out dates are required")
	case checkIn.Before(today):
		return model.Invalidf("check-in date cannot be in the past")
	case !checkOut.After(checkIn):
		return model.Invalidf("check-out date must be after check-in date")
	case checkIn.DaysUntil(checkOut) > MaxStayNights:
		return model.Invalidf("stay cannot exceed %d days", MaxStayNights)
	case checkIn.After(today.AddDays(MaxAdvanceDays)):
		return model.Invalidf("check-in date cannot be more than %d days in the future", MaxAdvanceDays)
	}
	return nil
}

// CheckAvailability reports whether [checkIn, checkOut) is free and, if not,
// what the guest could book instead.
func (s *BookingService) CheckAvailability(ctx context.Context, checkIn, checkOut model.Date) (*model.AvailabilityResponse, error) {
	ctx, span := tracer.Start(ctx, "availability.check")
	defer span.End()

	if !checkOut.After(checkIn) {
		return nil, model.Invalidf("check-out date must be after check-in date")
	}
	stay := model.Range{Start: checkIn, End: checkOut}
	resp := &model.AvailabilityResponse{
		RequestedPeriod: model.Period{StartDate: checkIn, EndDate: checkOut, Days: stay.Nights()},
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		engine := availability.New(tx)
		free, conflicts, err := engine.IsRangeFree(ctx, checkIn, checkOut, "")
		if err != nil {
			return err
		}
		resp.Available = free
		resp.AlternativeDates, err = engine.Alternatives(ctx, stay, conflicts)
		return err
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("check availability: %w", err))
	}
	span.SetAttributes(attribute.Bool("available", resp.Available))
	return resp, nil
}

// Calendar returns the free periods in [start, end]. A zero start means
// today; a zero end means start plus DefaultCalendarDays.
func (s *BookingService) Calendar(ctx context.Context, start, end model.Date) (*model.CalendarResponse, error) {
	if start.IsZero() {
		start = s.Today()
	}
	if end.IsZero() {
		end = start.AddDays(DefaultCalendarDays)
	}
	if end.Before(start) {
		return nil, model.Invalidf("end date must not be before start date")
	}
	if start.DaysUntil(end) > MaxCalendarDays {
		return nil, model.Invalidf("calendar window cannot exceed %d days", MaxCalendarDays)
	}
	resp := &model.CalendarResponse{Start: start, End: end}

	// The generation is read before the store so an invalidation that
	// commits meanwhile orphans this result instead of publishing it.
	cached := s.cache != nil
	var gen int64
	if cached {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.log.WithError(err).Warn("calendar cache generation read failed")
			cached = false
		}
	}
	if cached {
		periods, ok, err := s.cache.Get(ctx, gen, start, end)
		if err != nil {
			s.log.WithError(err).Warn("calendar cache read failed")
		}
		if ok {
			resp.FreeRanges = periods
			return resp, nil
		}
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		resp.FreeRanges, err = availability.New(tx).FreeRanges(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("free ranges: %w", err)
	}

	if cached {
		if err := s.cache.Set(ctx, gen, start, end, resp.FreeRanges); err != nil {
			s.log.WithError(err).Warn("calendar cache write failed")
		}
	}
	return resp, nil
}

// CreateBooking validates the request, checks the dates against confirmed
// bookings and stores a PENDING booking.
func (s *BookingService) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()

	if err := s.ValidateDates(req.CheckInDate, req.CheckOutDate); err != nil {
		return nil, fail(span, err)
	}

	now := s.now().UTC()
	b := &model.Booking{
		BookingDate:         s.Today(),
		CheckInDate:         req.CheckInDate,
		CheckOutDate:        req.CheckOutDate,
		PaymentStatus:       model.StatusPending,
		PaymentType:         strings.TrimSpace(req.PaymentType),
		PaymentAmount:       req.PaymentAmount,
		GuestName:           strings.TrimSpace(req.GuestName),
		GuestEmail:          strings.ToLower(strings.TrimSpace(req.GuestEmail)),
		GuestPhone:          strings.TrimSpace(req.GuestPhone),
		GuestAddress:        strings.TrimSpace(req.GuestAddress),
		TotalGuestsAdults:   req.TotalGuestsAdults,
		TotalGuestsChildren: req.TotalGuestsChildren,
		IDType:              strings.TrimSpace(req.IDType),
		IDNumber:            strings.TrimSpace(req.IDNumber),
		PurposeOfStay:       strings.TrimSpace(req.PurposeOfStay),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	stay := b.Stay()

	err := s.atomically(ctx, "create", func(ctx context.Context, tx repository.Tx) error {
		engine := availability.New(tx)
		free, conflicts, err := engine.IsRangeFree(ctx, stay.Start, stay.End, "")
		if err != nil {
			return err
		}
		if !free {
			return conflict(ctx, engine, stay, conflicts)
		}
		b.ID = uuid.New().String()
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("booking.id", b.ID))
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"check_in":   b.CheckInDate.String(),
		"check_out":  b.CheckOutDate.String(),
		"nights":     b.Nights(),
	}).Info("booking created")

	result := &CreateResult{Booking: b}
	if err := s.notifier.BookingCreated(ctx, *b); err != nil {
		result.NotifyErr = err
		s.log.WithField("booking_id", b.ID).WithError(err).Warn("booking notification failed")
	}
	return result, nil
}

// TransitionPaymentStatus moves a booking to a new payment status. The
// booking is looked up first, then the status is checked against the enum.
// Moving into a confirmed status from PENDING re-checks the dates, ignoring
// the booking itself; on conflict nothing changes.
func (s *BookingService) TransitionPaymentStatus(ctx context.Context, id string, rawStatus int) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "booking.transition",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.Int("status.to", rawStatus)))
	defer span.End()

	var (
		updated  *model.Booking
		from, to model.PaymentStatus
	)
	err := s.atomically(ctx, "transition", func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if to, err = model.ParsePaymentStatus(rawStatus); err != nil {
			return err
		}
		from = b.PaymentStatus

		if to.IsConfirmed() && !from.IsConfirmed() {
			engine := availability.New(tx)
			free, conflicts, err := engine.IsRangeFree(ctx, b.CheckInDate, b.CheckOutDate, b.ID)
			if err != nil {
				return err
			}
			if !free {
				return conflict(ctx, engine, b.Stay(), conflicts)
			}
		}

		if to != from {
			if err := tx.UpdateStatus(ctx, b.ID, to); err != nil {
				return err
			}
			b.PaymentStatus = to
			b.UpdatedAt = s.now().UTC()
		}
		updated = b
		return nil
	})
	if err != nil {
		var ce *model.ConflictError
		if errors.As(err, &ce) {
			s.log.WithFields(logrus.Fields{
				"booking_id": id,
				"to":         to.String(),
				"conflicts":  len(ce.Conflicts),
			}).Info("status transition refused: dates taken")
		}
		return nil, fail(span, err)
	}

	result := &TransitionResult{Booking: updated}
	if to == from {
		return result, nil
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": id,
		"from":       from.String(),
		"to":         to.String(),
	}).Info("payment status changed")

	if (from.IsConfirmed() || to.IsConfirmed()) && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Warn("calendar cache invalidate failed")
		}
	}
	if err := s.notifier.StatusChanged(ctx, *updated, from); err != nil {
		result.NotifyErr = err
		s.log.WithField("booking_id", id).WithError(err).Warn("status notification failed")
	}
	return result, nil
}

// GetBooking returns a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, model.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// ListBookings returns bookings, optionally filtered by status.
func (s *BookingService) ListBookings(ctx context.Context, f model.ListFilter) ([]model.Booking, error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidStatus, int(*f.Status))
	}
	return s.store.List(ctx, f)
}

// atomically runs fn in a store transaction, rerunning it when the commit
// lost a race. A rerun sees the winner's write, so a lost confirm turns into
// an ordinary conflict.
func (s *BookingService) atomically(ctx context.Context, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		if !errors.Is(err, model.ErrConcurrentUpdate) {
			return err
		}
		s.log.WithFields(logrus.Fields{"op": op, "attempt": attempt}).
			WithError(err).Warn("concurrent update, retrying")
	}
	return err
}

func conflict(ctx context.Context, engine *availability.Engine, stay model.Range, conflicts []model.Booking) error {
	alts, err := engine.Alternatives(ctx, stay, conflicts)
	if err != nil {
		return err
	}
	return &model.ConflictError{Requested: stay, Conflicts: conflicts, Alternatives: alts}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
