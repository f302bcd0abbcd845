// Package clock абстрагирует текущее время, чтобы политику доступа
// можно было проверять без ожидания реальных суток.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время. Продакшн-код получает Real(),
// тесты получают Fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real возвращает часы на основе time.Now в UTC.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

// Fake часы с ручным управлением временем. Безопасны для конкурентного использования.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake создаёт Fake, показывающие момент start (в UTC).
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC()}
}

// Now возвращает текущее значение фейковых часов.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance сдвигает часы вперёд на d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set выставляет часы в момент t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t.UTC()
	f.mu.Unlock()
}
