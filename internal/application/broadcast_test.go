package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
	"github.com/MjBots-creater/save-restricted-bot/pkg/broadcast"
)

func seedUsers(t *testing.T, ids ...int64) *memory.UserRepository {
	t.Helper()
	r := memory.NewUserRepository()
	for _, id := range ids {
		_, err := r.Ensure(context.Background(), &entity.User{ID: id})
		require.NoError(t, err)
	}
	return r
}

func TestBroadcast_InlineSkipsFailures(t *testing.T) {
	m := &fakeMessenger{errs: map[int64]error{2: gateway.ErrUserUnreachable}}
	b := NewBroadcastService(seedUsers(t, 1, 2, 3), m, nil, 0, nil)

	rep, err := b.Broadcast(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, BroadcastReport{Recipients: 3, Delivered: 2, Failed: 1}, rep)
	require.Len(t, m.sent, 2)
	assert.Equal(t, BroadcastText("hello"), m.sent[0].text)
	assert.Equal(t, int64(3), m.sent[1].chatID)
}

func TestBroadcast_CancelledMidwayAccountsForEveryone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &fakeMessenger{onSend: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	b := NewBroadcastService(seedUsers(t, 1, 2, 3, 4, 5), m, nil, 0, nil)

	rep, err := b.Broadcast(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, BroadcastReport{Recipients: 5, Delivered: 2, Skipped: 3}, rep)
	assert.Equal(t, rep.Recipients, rep.Delivered+rep.Queued+rep.Failed+rep.Skipped)
	assert.Len(t, m.sent, 2)
}

func TestBroadcast_Queued(t *testing.T) {
	p := &fakePublisher{}
	m := &fakeMessenger{}
	b := NewBroadcastService(seedUsers(t, 1, 2), m, p, 0, nil)

	rep, err := b.Broadcast(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Queued)
	assert.Empty(t, m.sent)
	require.Len(t, p.bodies, 2)
	j1 := p.bodies[0].(broadcast.Job)
	j2 := p.bodies[1].(broadcast.Job)
	assert.Equal(t, j1.Batch, j2.Batch)
	assert.NotEqual(t, j1.ID, j2.ID)
	assert.Equal(t, int64(1), j1.ChatID)
}

func TestDeliverJob(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{errs: map[int64]error{5: gateway.ErrRateLimited, 6: errBoom}}
	b := NewBroadcastService(memory.NewUserRepository(), m, nil, 0, nil)

	retry, err := b.DeliverJob(ctx, broadcast.NewJob("b", 4, "x"))
	assert.NoError(t, err)
	assert.False(t, retry)

	retry, err = b.DeliverJob(ctx, broadcast.NewJob("b", 5, "x"))
	assert.Error(t, err)
	assert.True(t, retry)

	again := broadcast.NewJob("b", 5, "x")
	again.Attempt = broadcast.MaxAttempts - 1
	retry, _ = b.DeliverJob(ctx, again)
	assert.False(t, retry)

	retry, err = b.DeliverJob(ctx, broadcast.NewJob("b", 6, "x"))
	assert.Error(t, err)
	assert.False(t, retry)
}
