// Package users управляет пользователями бота и политикой пробного доступа.
// Состояние доступа не хранится: оно вычисляется при каждом обращении
// из флага active, даты начала отсчёта и длительности доступа.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/lib/clock"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/models"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
)

// ErrInvalidDays возвращается при попытке продлить доступ на неположительный срок.
var ErrInvalidDays = errors.New("renewal days must be positive")

// State производное состояние доступа пользователя.
type State string

const (
	StateUnregistered State = "unregistered"
	StateTrialActive  State = "trial_active"
	StateTrialExpired State = "trial_expired"
	StateBlocked      State = "blocked"
)

// Repository определяет операции хранилища, нужные сервису пользователей.
type Repository interface {
	InsertUserIfAbsent(ctx context.Context, user models.User) (bool, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SetUserActive(ctx context.Context, userID string, active bool) error
	RenewUser(ctx context.Context, userID string, days int, renewedAt time.Time) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Service реализует регистрацию, проверку доступа и изменение пользователей.
type Service struct {
	repo      Repository
	clock     clock.Clock
	trialDays int
	log       *slog.Logger
}

// NewService создает сервис. trialDays <= 0 заменяется на models.DefaultTrialDays.
func NewService(repo Repository, clk clock.Clock, trialDays int, log *slog.Logger) *Service {
	if trialDays <= 0 {
		trialDays = models.DefaultTrialDays
	}
	return &Service{
		repo:      repo,
		clock:     clk,
		trialDays: trialDays,
		log:       log,
	}
}

// Register добавляет пользователя с новым пробным периодом. Повторная
// регистрация ничего не меняет и ошибкой не считается.
func (s *Service) Register(ctx context.Context, userID string, chatID int64, name string) error {
	const op = "users.Register"

	user := models.User{
		UserID:        userID,
		ChatID:        chatID,
		Name:          name,
		Active:        true,
		RegisteredAt:  s.clock.Now(),
		RemainingDays: s.trialDays,
	}
	created, err := s.repo.InsertUserIfAbsent(ctx, user)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if created {
		s.log.Info("user registered",
			slog.String("op", op),
			slog.String("user_id", userID),
			slog.Int("trial_days", s.trialDays))
	}
	return nil
}

// CheckAccess сообщает, может ли пользователь пользоваться ботом прямо сейчас.
// Неизвестный пользователь доступа не имеет.
func (s *Service) CheckAccess(ctx context.Context, userID string) (bool, error) {
	const op = "users.CheckAccess"

	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return StateOf(user, s.clock.Now()) == StateTrialActive, nil
}

// Activate снимает блокировку. Срок доступа не пересчитывается.
func (s *Service) Activate(ctx context.Context, userID string) error {
	return s.setActive(ctx, "users.Activate", userID, true)
}

// Deactivate блокирует пользователя независимо от срока доступа.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, "users.Deactivate", userID, false)
}

func (s *Service) setActive(ctx context.Context, op, userID string, active bool) error {
	if err := s.repo.SetUserActive(ctx, userID, active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user access flag changed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.Bool("active", active))
	return nil
}

// Renew выдает доступ на days дней, начиная с текущего момента, и снимает
// блокировку. Ранее прошедшее время не учитывается.
func (s *Service) Renew(ctx context.Context, userID string, days int) error {
	const op = "users.Renew"

	if days < 1 {
		return fmt.Errorf("%s: %w", op, ErrInvalidDays)
	}
	if err := s.repo.RenewUser(ctx, userID, days, s.clock.Now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user renewed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.Int("days", days))
	return nil
}

// Delete удаляет пользователя и его историю. Отсутствующий пользователь не ошибка.
func (s *Service) Delete(ctx context.Context, userID string) error {
	const op = "users.Delete"

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		s.log.Error("failed to delete user", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("op", op), slog.String("user_id", userID))
	return nil
}

// ListAll возвращает всех пользователей, последние зарегистрированные первыми.
func (s *Service) ListAll(ctx context.Context) ([]*models.User, error) {
	const op = "users.ListAll"

	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Now текущее время сервиса, используется для вычисления состояний в списке.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// ElapsedDays число полных суток, прошедших с registeredAt. Время в будущем дает 0.
func ElapsedDays(now, registeredAt time.Time) int {
	d := now.Sub(registeredAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// DaysLeft сколько полных дней доступа осталось, не меньше нуля.
func DaysLeft(user *models.User, now time.Time) int {
	left := user.RemainingDays - ElapsedDays(now, user.RegisteredAt)
	if left < 0 {
		return 0
	}
	return left
}

// StateOf вычисляет состояние доступа пользователя на момент now.
func StateOf(user *models.User, now time.Time) State {
	switch {
	case user == nil:
		return StateUnregistered
	case !user.Active:
		return StateBlocked
	case ElapsedDays(now, user.RegisteredAt) >= user.RemainingDays:
		return StateTrialExpired
	default:
		return StateTrialActive
	}
}
