package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chat-relay/internal/lib/clock"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/models"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
	"github.com/magabrotheeeer/chat-relay/internal/storage/storagetest"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) InsertUserIfAbsent(ctx context.Context, user models.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) SetUserActive(ctx context.Context, userID string, active bool) error {
	return m.Called(ctx, userID, active).Error(0)
}
func (m *RepoMock) RenewUser(ctx context.Context, userID string, days int, renewedAt time.Time) error {
	return m.Called(ctx, userID, days, renewedAt).Error(0)
}
func (m *RepoMock) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *RepoMock) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

var start = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func newTestService() (*Service, *clock.Fake, *storagetest.MemStore) {
	clk := clock.NewFake(start)
	store := storagetest.New()
	return NewService(store, clk, models.DefaultTrialDays, sl.Discard()), clk, store
}

func TestElapsedDays(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{name: "same instant", d: 0, want: 0},
		{name: "almost a day", d: 24*time.Hour - time.Second, want: 0},
		{name: "exactly a day", d: 24 * time.Hour, want: 1},
		{name: "five and a half days", d: 5*24*time.Hour + 12*time.Hour, want: 5},
		{name: "future registration", d: -3 * time.Hour, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedDays(start.Add(tt.d), start))
		})
	}
}

func TestStateOf(t *testing.T) {
	active := &models.User{Active: true, RegisteredAt: start, RemainingDays: 5}
	blocked := &models.User{Active: false, RegisteredAt: start, RemainingDays: 5}

	assert.Equal(t, StateUnregistered, StateOf(nil, start))
	assert.Equal(t, StateTrialActive, StateOf(active, start))
	assert.Equal(t, StateTrialActive, StateOf(active, start.Add(4*24*time.Hour+23*time.Hour)))
	assert.Equal(t, StateTrialExpired, StateOf(active, start.Add(5*24*time.Hour)))
	assert.Equal(t, StateBlocked, StateOf(blocked, start))
	assert.Equal(t, StateBlocked, StateOf(blocked, start.Add(30*24*time.Hour)))

	assert.Equal(t, 5, DaysLeft(active, start))
	assert.Equal(t, 2, DaysLeft(active, start.Add(3*24*time.Hour)))
	assert.Equal(t, 0, DaysLeft(active, start.Add(9*24*time.Hour)))
}

func TestService_RegisterThenCheckAccess(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for _, id := range []string{"1", "42", "777000"} {
		require.NoError(t, svc.Register(ctx, id, 1, "user"))
		ok, err := svc.CheckAccess(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "fresh trial for %s must be valid", id)
	}
}

func TestService_RegisterIsIdempotent(t *testing.T) {
	svc, clk, store := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "u1", 10, "Ana"))
	clk.Advance(3 * 24 * time.Hour)
	require.NoError(t, svc.Register(ctx, "u1", 10, "Ana Maria"))

	u, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.True(t, u.RegisteredAt.Equal(start), "second registration must not reset the clock")
}

func TestService_CheckAccessUnknownUser(t *testing.T) {
	svc, _, _ := newTestService()
	ok, err := svc.CheckAccess(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_TrialExpiry(t *testing.T) {
	svc, clk, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "u1", 1, ""))
	ok, err := svc.CheckAccess(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(6 * 24 * time.Hour)
	ok, err = svc.CheckAccess(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	// активный флаг не спасает истёкший доступ
	require.NoError(t, svc.Activate(ctx, "u1"))
	ok, err = svc.CheckAccess(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_RenewRestoresAccess(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, svc *Service, clk *clock.Fake)
	}{
		{
			name:    "active trial",
			prepare: func(_ *testing.T, _ *Service, _ *clock.Fake) {},
		},
		{
			name: "expired trial",
			prepare: func(_ *testing.T, _ *Service, clk *clock.Fake) {
				clk.Advance(40 * 24 * time.Hour)
			},
		},
		{
			name: "blocked and expired",
			prepare: func(t *testing.T, svc *Service, clk *clock.Fake) {
				require.NoError(t, svc.Deactivate(context.Background(), "u1"))
				clk.Advance(10 * 24 * time.Hour)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, clk, store := newTestService()
			ctx := context.Background()
			require.NoError(t, svc.Register(ctx, "u1", 1, ""))

			tt.prepare(t, svc, clk)
			require.NoError(t, svc.Renew(ctx, "u1", 30))

			ok, err := svc.CheckAccess(ctx, "u1")
			require.NoError(t, err)
			assert.True(t, ok)

			u, err := store.GetUser(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 30, u.RemainingDays)
			assert.True(t, u.RegisteredAt.Equal(clk.Now()))
			assert.True(t, u.Active)
		})
	}
}

func TestService_DeactivateActivateKeepsExpiry(t *testing.T) {
	svc, clk, store := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "u1", 1, ""))
	clk.Advance(2 * 24 * time.Hour)

	before, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, "u1"))
	ok, err := svc.CheckAccess(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Activate(ctx, "u1"))
	after, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before.ExpiresAt(), after.ExpiresAt())
	assert.Equal(t, before.RemainingDays, after.RemainingDays)

	ok, err = svc.CheckAccess(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_RenewInvalidDays(t *testing.T) {
	repo := new(RepoMock)
	svc := NewService(repo, clock.NewFake(start), 5, sl.Discard())

	for _, days := range []int{0, -1} {
		err := svc.Renew(context.Background(), "u1", days)
		assert.ErrorIs(t, err, ErrInvalidDays)
	}
	repo.AssertNotCalled(t, "RenewUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_DeleteThenList(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "u1", 1, ""))
	require.NoError(t, svc.Register(ctx, "u2", 2, ""))
	require.NoError(t, store.AddMessage(ctx, models.ChatMessage{UserID: "u1", Role: models.RoleUser, Content: "hi", Timestamp: start}))

	require.NoError(t, svc.Delete(ctx, "u1"))
	require.NoError(t, svc.Delete(ctx, "u1"))

	list, err := svc.ListAll(ctx)
	require.NoError(t, err)
	for _, u := range list {
		assert.NotEqual(t, "u1", u.UserID)
	}
	assert.Zero(t, store.MessageCount("u1"))
}

func TestService_ListAllOrder(t *testing.T) {
	svc, clk, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "old", 1, ""))
	clk.Advance(time.Hour)
	require.NoError(t, svc.Register(ctx, "new", 2, ""))

	list, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].UserID)
	assert.Equal(t, "old", list[1].UserID)
}

func TestService_RepositoryErrors(t *testing.T) {
	dbErr := errors.New("connection refused")
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(r *RepoMock)
		call  func(s *Service) error
		want  error
	}{
		{
			name:  "register",
			setup: func(r *RepoMock) { r.On("InsertUserIfAbsent", ctx, mock.Anything).Return(false, dbErr).Once() },
			call:  func(s *Service) error { return s.Register(ctx, "u1", 1, "") },
			want:  dbErr,
		},
		{
			name:  "check access",
			setup: func(r *RepoMock) { r.On("GetUser", ctx, "u1").Return(nil, dbErr).Once() },
			call: func(s *Service) error {
				_, err := s.CheckAccess(ctx, "u1")
				return err
			},
			want: dbErr,
		},
		{
			name:  "activate unknown",
			setup: func(r *RepoMock) { r.On("SetUserActive", ctx, "ghost", true).Return(storage.ErrUserNotFound).Once() },
			call:  func(s *Service) error { return s.Activate(ctx, "ghost") },
			want:  storage.ErrUserNotFound,
		},
		{
			name:  "renew unknown",
			setup: func(r *RepoMock) { r.On("RenewUser", ctx, "ghost", 7, start).Return(storage.ErrUserNotFound).Once() },
			call:  func(s *Service) error { return s.Renew(ctx, "ghost", 7) },
			want:  storage.ErrUserNotFound,
		},
		{
			name:  "delete",
			setup: func(r *RepoMock) { r.On("DeleteUser", ctx, "u1").Return(dbErr).Once() },
			call:  func(s *Service) error { return s.Delete(ctx, "u1") },
			want:  dbErr,
		},
		{
			name:  "list",
			setup: func(r *RepoMock) { r.On("ListUsers", ctx).Return(nil, dbErr).Once() },
			call: func(s *Service) error {
				_, err := s.ListAll(ctx)
				return err
			},
			want: dbErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			svc := NewService(repo, clock.NewFake(start), 5, sl.Discard())

			assert.ErrorIs(t, tt.call(svc), tt.want)
			repo.AssertExpectations(t)
		})
	}
}
