package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/config"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	"gopkg.in/gomail.v2"
)

// sender is the part of *gomail.Dialer the Mailer uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails the guest.
type Mailer struct {
	dialer sender
	from   string
}

// NewMailer builds a Mailer from SMTP settings.
func NewMailer(cfg config.SMTP) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Mailer) BookingCreated(_ context.Context, b model.Booking) error {
	body := fmt.Sprintf(`Dear %s,

We have received your booking request.

  Booking ID: %s
  Stay:       %s
  Guests:     %d adults, %d children
  Phone:      %s

Your dates are held once the payment is approved. We will write again when
that happens.
`, b.GuestName, b.ID, stayLine(b), b.TotalGuestsAdults, b.TotalGuestsChildren, b.GuestPhone)

	return m.send(b.GuestEmail, "Booking request received", body)
}

// StatusChanged only mails the guest when the booking becomes confirmed.
func (m *Mailer) StatusChanged(_ context.Context, b model.Booking, from model.PaymentStatus) error {
	if !b.PaymentStatus.IsConfirmed() || from.IsConfirmed() {
		return nil
	}
	body := fmt.Sprintf(`Dear %s,

Your booking %s is confirmed.

  Stay: %s

We look forward to hosting you.
`, b.GuestName, b.ID, stayLine(b))

	return m.send(b.GuestEmail, "Booking confirmed", body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", strings.TrimSpace(to))
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
