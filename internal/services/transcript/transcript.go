// Package transcript хранит историю переписки пользователя с ботом
// и отдает скользящее окно последних сообщений для запроса к модели.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/chat-relay/internal/lib/clock"
	"github.com/magabrotheeeer/chat-relay/internal/models"
)

// DefaultWindow число последних сообщений, передаваемых модели по умолчанию.
const DefaultWindow = 10

// ErrInvalidRole возвращается при попытке сохранить сообщение с ролью,
// отличной от user и assistant.
var ErrInvalidRole = errors.New("invalid message role")

// Repository операции хранилища над сообщениями.
type Repository interface {
	AddMessage(ctx context.Context, msg models.ChatMessage) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	ClearMessages(ctx context.Context, userID string) (int, error)
}

// Service история переписки поверх Repository.
type Service struct {
	repo  Repository
	clock clock.Clock
	log   *slog.Logger
}

// NewService создает сервис истории.
func NewService(repo Repository, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		clock: clk,
		log:   log,
	}
}

// Append сохраняет сообщение с текущим временем. Пустой после обрезки
// пробелов текст игнорируется без ошибки.
func (s *Service) Append(ctx context.Context, userID string, role models.Role, content string) error {
	const op = "transcript.Append"

	if strings.TrimSpace(content) == "" {
		s.log.Debug("empty message skipped", slog.String("op", op), slog.String("user_id", userID))
		return nil
	}
	if !role.Valid() {
		return fmt.Errorf("%s: %w: %q", op, ErrInvalidRole, role)
	}

	msg := models.ChatMessage{
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: s.clock.Now(),
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// History возвращает не более window последних сообщений по возрастанию времени.
// window <= 0 заменяется на DefaultWindow.
func (s *Service) History(ctx context.Context, userID string, window int) ([]models.ChatMessage, error) {
	const op = "transcript.History"

	if window <= 0 {
		window = DefaultWindow
	}
	msgs, err := s.repo.RecentMessages(ctx, userID, window)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// Clear удаляет всю историю пользователя.
func (s *Service) Clear(ctx context.Context, userID string) error {
	const op = "transcript.Clear"

	n, err := s.repo.ClearMessages(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("transcript cleared",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.Int("messages", n))
	return nil
}
