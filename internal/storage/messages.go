package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/chat-relay/internal/models"
)

// AddMessage сохраняет одно сообщение переписки.
func (s *Storage) AddMessage(ctx context.Context, msg models.ChatMessage) error {
	const op = "storage.AddMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO messages (user_id, role, content, created_at)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, msg.UserID, string(msg.Role), msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecentMessages возвращает последние limit сообщений пользователя
// в хронологическом порядке. Сначала выбираются самые новые строки,
// затем они пересортировываются по возрастанию; id разрешает совпадения
// по времени в порядке записи.
func (s *Storage) RecentMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	const op = "storage.RecentMessages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT role, content, created_at FROM (
			      SELECT id, role, content, created_at
			      FROM messages
			      WHERE user_id = $1
			      ORDER BY created_at DESC, id DESC
			      LIMIT $2
			  ) AS recent
			  ORDER BY created_at ASC, id ASC`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ChatMessage, 0, limit)
	for rows.Next() {
		msg := models.ChatMessage{UserID: userID}
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		msg.Role = models.Role(role)
		msg.Timestamp = msg.Timestamp.UTC()
		result = append(result, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClearMessages удаляет всю историю пользователя и возвращает число удалённых строк.
func (s *Storage) ClearMessages(ctx context.Context, userID string) (int, error) {
	const op = "storage.ClearMessages"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
