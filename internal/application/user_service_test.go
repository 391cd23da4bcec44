package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
)

type fakeIndexer struct {
	indexed map[int64]entity.User
	resets  int
	err     error
}

func (f *fakeIndexer) IndexUser(_ context.Context, u *entity.User) error {
	if f.err != nil {
		return f.err
	}
	if f.indexed == nil {
		f.indexed = map[int64]entity.User{}
	}
	f.indexed[u.ID] = *u
	return nil
}

func (f *fakeIndexer) DeleteUser(_ context.Context, id int64) error {
	delete(f.indexed, id)
	return f.err
}

func (f *fakeIndexer) DeleteAll(context.Context) error {
	f.resets++
	f.indexed = nil
	return f.err
}

func TestService_EnsureCreatesDefaults(t *testing.T) {
	ctx := context.Background()
	idx := &fakeIndexer{}
	s := NewService(memory.NewUserRepository(), idx, nil)

	require.NoError(t, s.Ensure(ctx, 7, "Ann Lee"))
	u, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.DisplayName)
	assert.False(t, u.Premium)
	assert.Empty(t, u.Destination)
	assert.Nil(t, u.LastVerifiedAt)
	assert.Contains(t, idx.indexed, int64(7))

	require.NoError(t, s.SetPremium(ctx, 7, true))
	require.NoError(t, s.Ensure(ctx, 7, "Other"))
	u, _ = s.Get(ctx, 7)
	assert.True(t, u.Premium, "ensure must not reset an existing record")
	assert.Equal(t, "Ann Lee", u.DisplayName)
}

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"@mychannel", "mychannel", true},
		{" mychannel ", "mychannel", true},
		{"-1001234567890", "-1001234567890", true},
		{"", "", false},
		{"@ab", "", false},
		{"has space", "", false},
		{"1abc", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeDestination(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidArgument, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestService_SetDestination(t *testing.T) {
	ctx := context.Background()
	s := NewService(memory.NewUserRepository(), nil, nil)

	_, err := s.SetDestination(ctx, 7, "@mychannel")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, s.Ensure(ctx, 7, ""))
	d, err := s.SetDestination(ctx, 7, "@mychannel")
	require.NoError(t, err)
	assert.Equal(t, "mychannel", d)
	u, _ := s.Get(ctx, 7)
	assert.True(t, u.HasDestination())
}

func TestService_LogoutAndReset(t *testing.T) {
	ctx := context.Background()
	idx := &fakeIndexer{}
	s := NewService(memory.NewUserRepository(), idx, nil)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, s.Ensure(ctx, id, ""))
	}

	require.NoError(t, s.Logout(ctx, 2))
	require.NoError(t, s.Logout(ctx, 2), "logout twice is fine")
	_, err := s.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)

	n, err := s.ResetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	cnt, _ := s.Count(ctx)
	assert.Zero(t, cnt)
	assert.Equal(t, 1, idx.resets)
}

func TestService_IndexFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	s := NewService(memory.NewUserRepository(), &fakeIndexer{err: errBoom}, nil)
	require.NoError(t, s.Ensure(ctx, 7, ""))
	require.NoError(t, s.Logout(ctx, 7))
}
