// Package notify pushes operator alerts. Permanent pipeline failures need a
// human to fix the upstream record; a log line alone is too easy to miss.
package notify

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends alerts to a fixed operator chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds the notifier, or nil when no token is configured so
// callers can treat alerting as optional.
func NewTelegram(token string, chatID int64) *Telegram {
	if token == "" || chatID == 0 {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("Telegram notifier disabled: %v", err)
		return nil
	}
	return &Telegram{bot: bot, chatID: chatID}
}

// Alert delivers a message to the operator chat. Delivery failures are
// logged, never propagated: alerting must not fail the pipeline.
func (t *Telegram) Alert(_ context.Context, message string) {
	msg := tgbotapi.NewMessage(t.chatID, message)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Failed to send operator alert: %v", err)
	}
}
