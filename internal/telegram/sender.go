package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrUndeliverable marks a send that will never succeed, e.g. the user blocked the bot.
var ErrUndeliverable = errors.New("telegram: message undeliverable")

// BotSender sends plain text messages through the Bot API.
type BotSender struct {
	api       *tgbotapi.BotAPI
	webAppURL string
}

// NewBotSender connects to the Bot API with token. webAppURL, when set, adds an "Open" button to messages.
func NewBotSender(token, webAppURL string) (*BotSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &BotSender{api: api, webAppURL: webAppURL}, nil
}

func (s *BotSender) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if s.webAppURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Open leaderboard", s.webAppURL)),
		)
	}
	if _, err := s.api.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

// classify wraps Bot API errors that retrying cannot fix with ErrUndeliverable.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 403:
			return fmt.Errorf("%w: %s", ErrUndeliverable, apiErr.Message)
		}
	}
	return fmt.Errorf("telegram send: %w", err)
}
