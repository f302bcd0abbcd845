// Package relay обрабатывает входящее сообщение целиком: регистрация,
// проверка доступа, история, запрос к модели, сохранение ответа и доставка.
// Шаги выполняются последовательно и завершаются на первом терминальном.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	"github.com/magabrotheeeer/chat-relay/internal/models"
	"github.com/magabrotheeeer/chat-relay/internal/telegram"
)

// ErrMalformedUpdate событие без сообщения или без id чата.
var ErrMalformedUpdate = errors.New("malformed update")

// Outcome чем завершилась обработка события.
type Outcome string

const (
	OutcomeReplied   Outcome = "replied"
	OutcomeDenied    Outcome = "denied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// UserService регистрация и проверка доступа.
type UserService interface {
	Register(ctx context.Context, userID string, chatID int64, name string) error
	CheckAccess(ctx context.Context, userID string) (bool, error)
}

// TranscriptService история переписки.
type TranscriptService interface {
	Append(ctx context.Context, userID string, role models.Role, content string) error
	History(ctx context.Context, userID string, window int) ([]models.ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}

// Completer генерирует ответ модели. Никогда не возвращает ошибку:
// при сбое провайдера отдается текст-заглушка.
type Completer interface {
	Generate(ctx context.Context, systemInstruction string, history []models.ChatMessage) string
}

// Deliverer отправляет сообщения в чат не более одного раза, без повторов.
type Deliverer interface {
	Send(ctx context.Context, chatID int64, text string)
	SendTyping(ctx context.Context, chatID int64)
}

// Deduplicator отмечает принятые update_id. Может быть nil.
type Deduplicator interface {
	ClaimUpdate(ctx context.Context, updateID int64) (bool, error)
	ReleaseUpdate(ctx context.Context, updateID int64) error
}

// Service оркестратор обработки входящих сообщений.
type Service struct {
	users      UserService
	transcript TranscriptService
	completer  Completer
	delivery   Deliverer
	dedup      Deduplicator
	cfg        config.Relay
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewService создает оркестратор. dedup и m могут быть nil.
func NewService(
	users UserService,
	transcript TranscriptService,
	completer Completer,
	delivery Deliverer,
	dedup Deduplicator,
	cfg config.Relay,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		users:      users,
		transcript: transcript,
		completer:  completer,
		delivery:   delivery,
		dedup:      dedup,
		cfg:        cfg,
		metrics:    m,
		log:        log,
	}
}

// Process обрабатывает одно событие вебхука. Ошибка означает внутренний сбой
// (хранилище, кеш) и не содержит деталей, пригодных для ответа клиенту.
// Отказ в доступе ошибкой не является.
func (s *Service) Process(ctx context.Context, update *telegram.Update) (outcome Outcome, err error) {
	const op = "relay.Process"
	log := s.log.With(slog.String("op", op))

	if update == nil || update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID == 0 {
		s.metrics.RelayOutcome("malformed")
		return "", fmt.Errorf("%s: %w", op, ErrMalformedUpdate)
	}
	msg := update.Message
	log = log.With(slog.Int64("update_id", update.UpdateID), slog.String("user_id", msg.UserID()))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", op, r)
		}
		if err != nil {
			log.Error("failed to process update", sl.Err(err))
			s.metrics.RelayOutcome("failed")
			s.releaseClaim(update.UpdateID, log)
			return
		}
		s.metrics.RelayOutcome(string(outcome))
	}()

	if s.dedup != nil && update.UpdateID != 0 {
		claimed, err := s.dedup.ClaimUpdate(ctx, update.UpdateID)
		if err != nil {
			// событие обрабатывается без отметки
			log.Warn("dedup unavailable", sl.Err(err))
		} else if !claimed {
			log.Info("duplicate update skipped")
			return OutcomeDuplicate, nil
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		log.Debug("update without text ignored")
		return OutcomeIgnored, nil
	}

	return s.relay(ctx, log, msg, text)
}

func (s *Service) relay(ctx context.Context, log *slog.Logger, msg *telegram.Message, text string) (Outcome, error) {
	const op = "relay.relay"
	userID := msg.UserID()
	chatID := msg.Chat.ID

	if err := s.users.Register(ctx, userID, chatID, msg.DisplayName()); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	allowed, err := s.users.CheckAccess(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !allowed {
		log.Info("access denied")
		s.delivery.Send(ctx, chatID, s.cfg.RejectionNotice)
		return OutcomeDenied, nil
	}

	if s.isResetToken(text) {
		if err := s.transcript.Clear(ctx, userID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.transcript.Append(ctx, userID, models.RoleUser, text); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	history, err := s.transcript.History(ctx, userID, s.cfg.HistoryWindow)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.delivery.SendTyping(ctx, chatID)
	reply := s.completer.Generate(ctx, s.cfg.SystemPrompt, history)

	if err := s.transcript.Append(ctx, userID, models.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.delivery.Send(ctx, chatID, reply)
	log.Info("reply relayed", slog.Int("history", len(history)))
	return OutcomeReplied, nil
}

func (s *Service) isResetToken(text string) bool {
	if s.cfg.ResetToken == "" {
		return false
	}
	return strings.EqualFold(text, strings.TrimSpace(s.cfg.ResetToken))
}

func (s *Service) releaseClaim(updateID int64, log *slog.Logger) {
	if s.dedup == nil || updateID == 0 {
		return
	}
	// контекст запроса к этому моменту может быть уже отменен
	if err := s.dedup.ReleaseUpdate(context.Background(), updateID); err != nil {
		log.Warn("failed to release update claim", sl.Err(err))
	}
}
