// Package notify holds the collaborators told about booking changes: guest
// email, admin Telegram messages and domain events on RabbitMQ.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"github.com/sirupsen/logrus"
)

// Notifier is told about bookings after they are committed. A failure never
// undoes the commit; callers report it and may retry out of band.
type Notifier interface {
	BookingCreated(ctx context.Context, b model.Booking) error
	StatusChanged(ctx context.Context, b model.Booking, from model.PaymentStatus) error
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) BookingCreated(ctx context.Context, b model.Booking) error {
	var errs []error
	for _, n := range m {
		if err := n.BookingCreated(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) StatusChanged(ctx context.Context, b model.Booking, from model.PaymentStatus) error {
	var errs []error
	for _, n := range m {
		if err := n.StatusChanged(ctx, b, from); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the log. Used when nothing else is
// configured.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) BookingCreated(_ context.Context, b model.Booking) error {
	l.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"guest":      b.GuestEmail,
		"check_in":   b.CheckInDate.String(),
		"check_out":  b.CheckOutDate.String(),
	}).Info("[notify] booking request received")
	return nil
}

func (l *LogNotifier) StatusChanged(_ context.Context, b model.Booking, from model.PaymentStatus) error {
	l.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       from.String(),
		"to":         b.PaymentStatus.String(),
	}).Info("[notify] payment status changed")
	return nil
}

// stayLine renders the stay for human-readable messages.
func stayLine(b model.Booking) string {
	return fmt.Sprintf("%s → %s (%d nights)", b.CheckInDate, b.CheckOutDate, b.Nights())
}
