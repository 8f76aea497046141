package notify

import (
	"context"
	"fmt"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram messages the admin chat so payments can be approved quickly.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot token.
func NewTelegram(token string, adminChatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: adminChatID}, nil
}

func (t *Telegram) BookingCreated(_ context.Context, b model.Booking) error {
	text := fmt.Sprintf("🏡 New booking request %s\n%s\nGuest: %s, %s, %s\nAwaiting payment approval.",
		b.ID, stayLine(b), b.GuestName, b.GuestPhone, b.GuestEmail)
	return t.send(text)
}

func (t *Telegram) StatusChanged(_ context.Context, b model.Booking, from model.PaymentStatus) error {
	text := fmt.Sprintf("Booking %s: %s → %s\n%s", b.ID, from, b.PaymentStatus, stayLine(b))
	return t.send(text)
}

func (t *Telegram) send(text string) error {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
