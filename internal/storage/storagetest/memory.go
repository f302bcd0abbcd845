// Package storagetest содержит хранилище в памяти с тем же поведением,
// что и storage.Storage. Используется в тестах сервисов.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/models"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
)

type storedMessage struct {
	id  int64
	msg models.ChatMessage
}

// MemStore хранилище пользователей и сообщений в памяти.
// Поле Err, если задано, возвращается из каждого метода.
type MemStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	messages []storedMessage
	nextID   int64

	Err error
}

// New создает пустое хранилище.
func New() *MemStore {
	return &MemStore{users: make(map[string]models.User)}
}

func (m *MemStore) InsertUserIfAbsent(_ context.Context, user models.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.users[user.UserID]; ok {
		return false, nil
	}
	m.users[user.UserID] = user
	return true, nil
}

func (m *MemStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("storagetest.GetUser: %w", storage.ErrUserNotFound)
	}
	return &u, nil
}

func (m *MemStore) SetUserActive(_ context.Context, userID string, active bool) error {
	return m.update(userID, func(u *models.User) { u.Active = active })
}

func (m *MemStore) RenewUser(_ context.Context, userID string, days int, renewedAt time.Time) error {
	return m.update(userID, func(u *models.User) {
		u.RemainingDays = days
		u.RegisteredAt = renewedAt
		u.Active = true
	})
}

func (m *MemStore) update(userID string, fn func(u *models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("storagetest.update: %w", storage.ErrUserNotFound)
	}
	fn(&u)
	m.users[userID] = u
	return nil
}

func (m *MemStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.users, userID)
	m.removeMessages(userID)
	return nil
}

func (m *MemStore) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, &u)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RegisteredAt.Equal(list[j].RegisteredAt) {
			return list[i].UserID < list[j].UserID
		}
		return list[i].RegisteredAt.After(list[j].RegisteredAt)
	})
	return list, nil
}

func (m *MemStore) FindTrialsExpiringBetween(_ context.Context, from, to time.Time) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var list []*models.User
	for _, u := range m.users {
		exp := u.ExpiresAt()
		if u.Active && !exp.Before(from) && exp.Before(to) {
			list = append(list, &u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })
	return list, nil
}

func (m *MemStore) AddMessage(_ context.Context, msg models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.nextID++
	m.messages = append(m.messages, storedMessage{id: m.nextID, msg: msg})
	return nil
}

func (m *MemStore) RecentMessages(_ context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var own []storedMessage
	for _, sm := range m.messages {
		if sm.msg.UserID == userID {
			own = append(own, sm)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		if own[i].msg.Timestamp.Equal(own[j].msg.Timestamp) {
			return own[i].id < own[j].id
		}
		return own[i].msg.Timestamp.Before(own[j].msg.Timestamp)
	})
	if len(own) > limit {
		own = own[len(own)-limit:]
	}
	result := make([]models.ChatMessage, 0, len(own))
	for _, sm := range own {
		result = append(result, sm.msg)
	}
	return result, nil
}

func (m *MemStore) ClearMessages(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.removeMessages(userID), nil
}

func (m *MemStore) ResetAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.users = make(map[string]models.User)
	m.messages = nil
	m.nextID = 0
	return nil
}

// MessageCount число сохраненных сообщений пользователя.
func (m *MemStore) MessageCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sm := range m.messages {
		if sm.msg.UserID == userID {
			n++
		}
	}
	return n
}

func (m *MemStore) removeMessages(userID string) int {
	kept := m.messages[:0]
	removed := 0
	for _, sm := range m.messages {
		if sm.msg.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, sm)
	}
	m.messages = kept
	return removed
}
