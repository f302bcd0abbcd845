// Package reminders периодически ищет пользователей, у которых скоро
// заканчивается пробный доступ, и публикует для них напоминания в очередь.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/chat-relay/internal/lib/clock"
	"github.com/magabrotheeeer/chat-relay/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	"github.com/magabrotheeeer/chat-relay/internal/models"
)

// Repository поиск пользователей по моменту окончания доступа.
type Repository interface {
	FindTrialsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error)
}

// SchedulerService публикует напоминания. Окна поиска соседних запусков
// идут встык, поэтому каждый пользователь попадает ровно в одно окно.
type SchedulerService struct {
	repo      Repository
	publisher rabbitmq.Publisher
	clock     clock.Clock
	lead      time.Duration
	interval  time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu       sync.Mutex
	nextFrom time.Time
}

// NewSchedulerService создает планировщик. Напоминание отправляется
// примерно за lead до окончания доступа, поиск повторяется каждые interval.
func NewSchedulerService(
	repo Repository,
	publisher rabbitmq.Publisher,
	clk clock.Clock,
	lead, interval time.Duration,
	m *metrics.Metrics,
	log *slog.Logger,
) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		lead:      lead,
		interval:  interval,
		metrics:   m,
		log:       log,
	}
}

// Run выполняет поиск сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	const op = "reminders.Run"
	log := s.log.With(slog.String("op", op))

	if _, err := s.RunOnce(ctx); err != nil {
		log.Error("reminder run failed", sl.Err(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				log.Error("reminder run failed", sl.Err(err))
			}
		}
	}
}

// RunOnce публикует напоминания для окна [from, now+lead+interval), где from
// это конец окна предыдущего успешного запуска или now+lead для первого.
// Возвращает число опубликованных сообщений.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	const op = "reminders.RunOnce"
	log := s.log.With(slog.String("op", op))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	from := now.Add(s.lead)
	if !s.nextFrom.IsZero() && s.nextFrom.Before(from) {
		from = s.nextFrom
	}
	to := now.Add(s.lead + s.interval)
	if !from.Before(to) {
		return 0, nil
	}

	list, err := s.repo.FindTrialsExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	published := 0
	for _, u := range list {
		reminder := models.TrialReminder{
			ID:        uuid.NewString(),
			UserID:    u.UserID,
			ChatID:    u.ChatID,
			Name:      u.Name,
			ExpiresAt: u.ExpiresAt(),
		}
		err := rabbitmq.PublishMessage(s.publisher, rabbitmq.NotificationsExchange, rabbitmq.TrialReminderRoutingKey, reminder.ID, reminder)
		if err != nil {
			log.Error("failed to publish reminder", slog.String("user_id", u.UserID), sl.Err(err))
			continue
		}
		published++
		s.metrics.ReminderPublished()
	}

	s.nextFrom = to
	log.Info("reminders published",
		slog.Time("from", from),
		slog.Time("to", to),
		slog.Int("found", len(list)),
		slog.Int("published", published))
	return published, nil
}
