package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/models"
)

// TelegramNotifier pushes escalation alerts to the business owner's
// Telegram chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (n *TelegramNotifier) NotifyEscalation(ctx context.Context, thread *models.Thread) error {
	text := fmt.Sprintf("🚨 Customer needs a human\nPhone: %s\nState: %s",
		thread.PhoneNumber, thread.State)
	if last := thread.LastMessage(); last != nil {
		text += fmt.Sprintf("\nLast message: %q", last.Content)
	}
	if name, ok := thread.CustomerInfo["name"]; ok {
		text += fmt.Sprintf("\nName: %s", name)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error("Failed to send escalation alert",
			zap.Error(err),
			zap.String("phone_number", thread.PhoneNumber))
		return fmt.Errorf("failed to send escalation alert: %w", err)
	}
	return nil
}
