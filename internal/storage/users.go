package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/models"
)

const userColumns = `user_id, chat_id, name, active, registered_at, remaining_days`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.UserID, &u.ChatID, &u.Name, &u.Active, &u.RegisteredAt, &u.RemainingDays); err != nil {
		return nil, err
	}
	u.RegisteredAt = u.RegisteredAt.UTC()
	return &u, nil
}

// InsertUserIfAbsent атомарно добавляет пользователя, если его ещё нет.
// Конфликт по user_id игнорируется: существующая запись и её срок доступа
// не перезаписываются. Возвращает true, если запись была создана.
func (s *Storage) InsertUserIfAbsent(ctx context.Context, user models.User) (bool, error) {
	const op = "storage.InsertUserIfAbsent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, chat_id, name, active, registered_at, remaining_days)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query,
		user.UserID, user.ChatID, user.Name, user.Active, user.RegisteredAt, user.RemainingDays)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// GetUser возвращает пользователя по его id или ErrUserNotFound.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SetUserActive меняет флаг active, не трогая даты и срок доступа.
func (s *Storage) SetUserActive(ctx context.Context, userID string, active bool) error {
	const op = "storage.SetUserActive"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET active = $1 WHERE user_id = $2`
	result, err := s.DB.ExecContext(ctx, query, active, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, result)
}

// RenewUser выставляет новый срок доступа, переносит начало отсчёта на renewedAt
// и снимает блокировку.
func (s *Storage) RenewUser(ctx context.Context, userID string, days int, renewedAt time.Time) error {
	const op = "storage.RenewUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET remaining_days = $1, registered_at = $2, active = TRUE WHERE user_id = $3`
	result, err := s.DB.ExecContext(ctx, query, days, renewedAt, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, result)
}

// DeleteUser удаляет пользователя вместе с историей его переписки в одной
// транзакции. Удаление отсутствующего пользователя не считается ошибкой.
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers возвращает всех пользователей, начиная с последних зарегистрированных.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY registered_at DESC, user_id`
	return s.queryUsers(ctx, op, query)
}

// FindTrialsExpiringBetween находит активных пользователей, у которых доступ
// заканчивается в полуинтервале [from, to).
func (s *Storage) FindTrialsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	const op = "storage.FindTrialsExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE active
			    AND registered_at + remaining_days * INTERVAL '1 day' >= $1
			    AND registered_at + remaining_days * INTERVAL '1 day' < $2
			  ORDER BY registered_at`
	return s.queryUsers(ctx, op, query, from, to)
}

func (s *Storage) queryUsers(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func expectOneRow(op string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
