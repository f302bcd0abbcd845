// Package admin операции оператора над пользователями: блокировка,
// продление, удаление, просмотр и полный сброс данных.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/lib/jwt"
	"github.com/magabrotheeeer/chat-relay/internal/lib/password"
	"github.com/magabrotheeeer/chat-relay/internal/models"
	"github.com/magabrotheeeer/chat-relay/internal/services/users"
)

// Границы срока продления.
const (
	MinRenewDays = 1
	MaxRenewDays = 365
)

var (
	// ErrInvalidDays срок продления вне [MinRenewDays, MaxRenewDays].
	ErrInvalidDays = errors.New("renewal days out of range")
	// ErrInvalidCredentials неверное имя или пароль оператора.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService операции над пользователями, доступные оператору.
type UserService interface {
	Activate(ctx context.Context, userID string) error
	Deactivate(ctx context.Context, userID string) error
	Renew(ctx context.Context, userID string, days int) error
	Delete(ctx context.Context, userID string) error
	ListAll(ctx context.Context) ([]*models.User, error)
	Now() time.Time
}

// Resetter полностью очищает пользователей и историю.
type Resetter interface {
	ResetAll(ctx context.Context) error
}

// UserView пользователь с вычисленным состоянием доступа.
type UserView struct {
	models.User
	State     users.State `json:"state"`
	DaysLeft  int         `json:"days_left"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Credentials учетные данные оператора.
type Credentials struct {
	Username     string
	PasswordHash string
}

// Service административные операции.
type Service struct {
	users    UserService
	resetter Resetter
	jwt      jwt.Maker
	creds    Credentials
	log      *slog.Logger
}

// NewService создает сервис администрирования.
func NewService(usersSvc UserService, resetter Resetter, maker jwt.Maker, creds Credentials, log *slog.Logger) *Service {
	return &Service{
		users:    usersSvc,
		resetter: resetter,
		jwt:      maker,
		creds:    creds,
		log:      log,
	}
}

// Login проверяет учетные данные оператора и выдает токен.
func (s *Service) Login(_ context.Context, username, pass string) (string, error) {
	const op = "admin.Login"

	if username != s.creds.Username {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(s.creds.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.jwt.GenerateToken(username, jwt.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("operator logged in", slog.String("op", op), slog.String("username", username))
	return token, nil
}

// Activate снимает блокировку пользователя.
func (s *Service) Activate(ctx context.Context, userID string) error {
	return s.users.Activate(ctx, userID)
}

// Deactivate блокирует пользователя.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.users.Deactivate(ctx, userID)
}

// Renew продлевает доступ на days дней от текущего момента.
func (s *Service) Renew(ctx context.Context, userID string, days int) error {
	const op = "admin.Renew"
	if days < MinRenewDays || days > MaxRenewDays {
		return fmt.Errorf("%s: %w: %d", op, ErrInvalidDays, days)
	}
	return s.users.Renew(ctx, userID, days)
}

// Delete удаляет пользователя и его историю. Повторное удаление не ошибка.
func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}

// ListAll возвращает пользователей с вычисленным состоянием доступа.
func (s *Service) ListAll(ctx context.Context) ([]UserView, error) {
	const op = "admin.ListAll"

	list, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.users.Now()
	views := make([]UserView, 0, len(list))
	for _, u := range list {
		views = append(views, UserView{
			User:      *u,
			State:     users.StateOf(u, now),
			DaysLeft:  users.DaysLeft(u, now),
			ExpiresAt: u.ExpiresAt(),
		})
	}
	return views, nil
}

// ResetAll удаляет всех пользователей и всю историю.
func (s *Service) ResetAll(ctx context.Context) error {
	const op = "admin.ResetAll"
	if err := s.resetter.ResetAll(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Warn("all users and transcripts removed", slog.String("op", op))
	return nil
}
