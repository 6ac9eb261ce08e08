package notifier

import (
	"context"
	"fmt"

	"food-delivery/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts the order summary to the restaurant's admin chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

// NewTelegram validates the bot token against the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) NotifyNewOrder(_ context.Context, order models.Order) error {
	msg := tgbotapi.NewMessage(t.chatID, plainText(order))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram order %d: %w", order.ID, err)
	}
	return nil
}
