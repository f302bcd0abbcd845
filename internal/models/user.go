// Package models содержит доменные структуры сервиса: пользователя с
// параметрами пробного доступа, сообщение переписки и событие напоминания.
package models

import "time"

// DefaultTrialDays длительность пробного периода новой регистрации.
const DefaultTrialDays = 5

// User представляет пользователя мессенджера, которому выдан доступ к боту.
type User struct {
	UserID        string    `json:"user_id"`        // Идентификатор пользователя в мессенджере
	ChatID        int64     `json:"chat_id"`        // Чат, куда отправлять уведомления
	Name          string    `json:"name,omitempty"` // Отображаемое имя, может быть пустым
	Active        bool      `json:"active"`         // Флаг блокировки, не зависит от срока
	RegisteredAt  time.Time `json:"registered_at"`  // Начало отсчёта пробного периода
	RemainingDays int       `json:"remaining_days"` // Длительность доступа в днях от RegisteredAt
}

// ExpiresAt возвращает момент, начиная с которого доступ считается истёкшим.
func (u User) ExpiresAt() time.Time {
	return u.RegisteredAt.Add(time.Duration(u.RemainingDays) * 24 * time.Hour)
}
