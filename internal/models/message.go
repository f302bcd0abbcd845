package models

import "time"

// Role автор сообщения в переписке. Системная инструкция в базе не хранится.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem используется только при сборке запроса к модели.
	RoleSystem Role = "system"
)

// Valid сообщает, может ли роль быть сохранена в истории.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage одно сообщение из истории переписки пользователя.
type ChatMessage struct {
	UserID    string    `json:"user_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
