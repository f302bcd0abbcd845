package models

import "time"

// TrialReminder событие в очереди уведомлений о скором окончании доступа.
type TrialReminder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}
