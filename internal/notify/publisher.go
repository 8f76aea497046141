package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys published on the booking exchange.
const (
	RKBookingCreated       = "booking.created"
	RKBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is the payload for both routing keys.
type BookingEvent struct {
	BookingID     string `json:"booking_id"`
	CheckInDate   string `json:"check_in_date"`
	CheckOutDate  string `json:"check_out_date"`
	PaymentStatus int    `json:"payment_status"`
	PreviousState *int   `json:"previous_status,omitempty"`
	GuestEmail    string `json:"guest_email"`
}

// Publisher emits booking events to a RabbitMQ topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) BookingCreated(ctx context.Context, b model.Booking) error {
	return p.PublishJSON(ctx, RKBookingCreated, newBookingEvent(b, nil))
}

func (p *Publisher) StatusChanged(ctx context.Context, b model.Booking, from model.PaymentStatus) error {
	prev := int(from)
	return p.PublishJSON(ctx, RKBookingStatusChanged, newBookingEvent(b, &prev))
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func newBookingEvent(b model.Booking, prev *int) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		CheckInDate:   b.CheckInDate.String(),
		CheckOutDate:  b.CheckOutDate.String(),
		PaymentStatus: int(b.PaymentStatus),
		PreviousState: prev,
		GuestEmail:    b.GuestEmail,
	}
}
