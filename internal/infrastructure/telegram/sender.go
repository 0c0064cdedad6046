package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender delivers plain-text messages to Telegram chats through the Bot API.
type Sender struct {
	bot botAPI
}

// NewSender connects to the Bot API. timeout bounds every HTTP call the bot makes.
func NewSender(botToken string, timeout time.Duration) (*Sender, error) {
	b, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	b.Debug = false
	return &Sender{bot: b}, nil
}

// Send messages the user's private chat, whose id equals the user id.
func (s *Sender) Send(ctx context.Context, recipientID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(recipientID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", recipientID, err)
	}
	return nil
}
