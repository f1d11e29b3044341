// Package notify nudges room participants that have no live connection when a
// message lands for them. Only the Telegram channel is wired; users opt in by
// linking the marketplace bot.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"workmesh/backend/internal/models"
	"workmesh/backend/internal/storage"
)

// TelegramNotifier sends offline-delivery nudges through a Telegram bot.
type TelegramNotifier struct {
	Bot     *tgbotapi.BotAPI
	Storage storage.Storage
}

// NewTelegramNotifier authorizes the bot with the given token.
func NewTelegramNotifier(token string, s storage.Storage) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("start telegram bot: %w", err)
	}
	log.Printf("INFO: Offline notifier authorized as @%s", bot.Self.UserName)

	return &TelegramNotifier{Bot: bot, Storage: s}, nil
}

// NotifyOffline tells the user a message is waiting. Best effort: a user
// without a linked chat, or a failed send, is only logged.
func (n *TelegramNotifier) NotifyOffline(userID string, room *models.Room, msg *models.Message) {
	chatID, err := n.Storage.GetTelegramChatID(userID)
	if err != nil {
		log.Printf("WARNING: Failed to look up notification contact for %s: %v", userID, err)
		return
	}
	if chatID == 0 {
		return
	}

	text := fmt.Sprintf("New message waiting in your conversation: %s", preview(msg.Body))
	if _, err := n.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("WARNING: Failed to notify %s via Telegram: %v", userID, err)
	}
}

func preview(body string) string {
	const max = 80
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
