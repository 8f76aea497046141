// Package model defines the core domain types for the farmhouse booking system.
package model

import (
	"fmt"
	"time"
)

// PaymentStatus is the admin-controlled payment state of a booking.
type PaymentStatus int

const (
	StatusPending        PaymentStatus = 0
	StatusPaid           PaymentStatus = 1
	StatusApprovedUnpaid PaymentStatus = 2
)

// ConfirmedStatuses are the statuses that block dates.
var ConfirmedStatuses = []PaymentStatus{StatusPaid, StatusApprovedUnpaid}

// IsValid reports whether s is one of the three known statuses.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusApprovedUnpaid:
		return true
	}
	return false
}

// IsConfirmed reports whether s blocks the booking's dates.
func (s PaymentStatus) IsConfirmed() bool {
	return s == StatusPaid || s == StatusApprovedUnpaid
}

func (s PaymentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusApprovedUnpaid:
		return "approved_unpaid"
	}
	return fmt.Sprintf("PaymentStatus(%d)", int(s))
}

// ParsePaymentStatus converts a wire integer into a PaymentStatus.
func ParsePaymentStatus(v int) (PaymentStatus, error) {
	s := PaymentStatus(v)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, v)
	}
	return s, nil
}

// Booking is a guest's stay request for the property.
type Booking struct {
	ID            string        `json:"booking_id"`
	BookingDate   Date          `json:"booking_date"`
	CheckInDate   Date          `json:"check_in_date"`
	CheckOutDate  Date          `json:"check_out_date"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentType   string        `json:"payment_type"`
	PaymentAmount int           `json:"payment_amount"`

	GuestName           string `json:"guest_name"`
	GuestEmail          string `json:"guest_email"`
	GuestPhone          string `json:"guest_phone"`
	GuestAddress        string `json:"guest_address"`
	TotalGuestsAdults   int    `json:"total_guests_adults"`
	TotalGuestsChildren int    `json:"total_guests_children"`
	IDType              string `json:"id_type"`
	IDNumber            string `json:"id_number"`
	PurposeOfStay       string `json:"purpose_of_stay"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stay returns the booking's half-open date range.
func (b *Booking) Stay() Range {
	return Range{Start: b.CheckInDate, End: b.CheckOutDate}
}

// Nights returns the booking duration in whole days.
func (b *Booking) Nights() int {
	return b.Stay().Nights()
}

// CreateBookingRequest is the payload for POST /bookings. Any payment status
// sent by the client is ignored.
type CreateBookingRequest struct {
	CheckInDate   Date   `json:"check_in_date" validate:"required"`
	CheckOutDate  Date   `json:"check_out_date" validate:"required"`
	PaymentStatus *int   `json:"payment_status,omitempty"`
	PaymentType   string `json:"payment_type" validate:"max=100"`
	PaymentAmount int    `json:"payment_amount" validate:"min=0"`

	GuestName           string `json:"guest_name" validate:"required,max=200"`
	GuestEmail          string `json:"guest_email" validate:"required,email,max=50"`
	GuestPhone          string `json:"guest_phone" validate:"required,max=15"`
	GuestAddress        string `json:"guest_address"`
	TotalGuestsAdults   int    `json:"total_guests_adults" validate:"min=1"`
	TotalGuestsChildren int    `json:"total_guests_children" validate:"min=0"`
	IDType              string `json:"id_type" validate:"max=50"`
	IDNumber            string `json:"id_number" validate:"max=50"`
	PurposeOfStay       string `json:"purpose_of_stay" validate:"max=50"`
}

// StatusRequest is the payload for POST /bookings/{id}/status.
type StatusRequest struct {
	PaymentStatus *int `json:"payment_status"`
}

// ListFilter narrows GET /bookings.
type ListFilter struct {
	Status *PaymentStatus
}

// Alternatives are the suggestions returned alongside a conflict.
type Alternatives struct {
	PartialAvailability  []Period `json:"partial_availability"`
	NextAvailablePeriods []Period `json:"next_available_periods"`
}

// AvailabilityResponse is the body of GET /availability.
type AvailabilityResponse struct {
	Available        bool          `json:"available"`
	RequestedPeriod  Period        `json:"requested_period"`
	AlternativeDates *Alternatives `json:"alternative_dates"`
}

// CalendarResponse is the body of GET /availability/calendar.
type CalendarResponse struct {
	Start      Date     `json:"start"`
	End        Date     `json:"end"`
	FreeRanges []Period `json:"free_ranges"`
}

// ConflictResponse is the 409 body for create and status transitions.
type ConflictResponse struct {
	Status           string        `json:"status"`
	Message          string        `json:"message"`
	AlternativeDates *Alternatives `json:"alternative_dates"`
}

// BookingResult is the body returned after a booking write: 201 for
// POST /bookings, 200 for POST /bookings/{id}/status. NotificationError is
// set when the write committed but a notifier failed.
type BookingResult struct {
	*Booking
	NotificationError string `json:"notification_error,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
