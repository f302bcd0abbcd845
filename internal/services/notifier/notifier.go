// Package notifier доставляет пользователям напоминания из очереди.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/chat-relay/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/chat-relay/internal/models"
)

// Sender отправка текста в чат telegram.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SenderService отправляет напоминания об окончании пробного доступа.
type SenderService struct {
	sender Sender
	text   string
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(sender Sender, text string, log *slog.Logger) *SenderService {
	return &SenderService{
		sender: sender,
		text:   text,
		log:    log,
	}
}

// SendTrialReminder обрабатывает одно сообщение очереди. Доставка не
// повторяется: любая ошибка помечается rabbitmq.ErrDrop.
func (s *SenderService) SendTrialReminder(ctx context.Context, body []byte) error {
	const op = "notifier.SendTrialReminder"

	var reminder models.TrialReminder
	if err := json.Unmarshal(body, &reminder); err != nil {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrDrop, err)
	}
	if reminder.ChatID == 0 {
		return fmt.Errorf("%s: %w: empty chat id", op, rabbitmq.ErrDrop)
	}

	if err := s.sender.SendMessage(ctx, reminder.ChatID, s.Format(reminder)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrDrop, err)
	}

	s.log.Info("trial reminder delivered",
		slog.String("op", op),
		slog.String("reminder_id", reminder.ID),
		slog.String("user_id", reminder.UserID))
	return nil
}

// Format собирает текст напоминания.
func (s *SenderService) Format(reminder models.TrialReminder) string {
	name := strings.TrimSpace(reminder.Name)
	if name == "" {
		return s.text
	}
	return fmt.Sprintf("Olá, %s! %s", name, s.text)
}
