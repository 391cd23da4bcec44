package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
)

type failingGateRepo struct {
	*memory.GateRepository
}

func (failingGateRepo) Save(context.Context, entity.GateSet) error { return errBoom }

func TestGateList_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewGateRepository(entity.GateSet{})
	l := NewGateList(repo, nil)
	require.NoError(t, l.Load(ctx))

	added, err := l.Add(ctx, entity.GateChannel, "@news")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = l.Add(ctx, entity.GateChannel, "news")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, repo.Saves())

	persisted, _ := repo.Load(ctx)
	assert.Equal(t, []string{"news"}, persisted.Channels)
	assert.Empty(t, persisted.Groups)
}

func TestGateList_RemoveMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewGateRepository(entity.GateSet{Groups: []string{"a", "b", "c"}})
	l := NewGateList(repo, nil)
	require.NoError(t, l.Load(ctx))

	removed, err := l.Remove(ctx, entity.GateGroup, "zzz")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Zero(t, repo.Saves())

	removed, err = l.Remove(ctx, entity.GateGroup, "b")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"a", "c"}, l.Snapshot().Groups)
}

func TestGateList_SnapshotIsStable(t *testing.T) {
	ctx := context.Background()
	l := NewGateList(memory.NewGateRepository(entity.GateSet{Channels: []string{"a", "b"}}), nil)
	require.NoError(t, l.Load(ctx))

	before := l.Snapshot()
	_, err := l.Remove(ctx, entity.GateChannel, "a")
	require.NoError(t, err)
	_, err = l.Add(ctx, entity.GateChannel, "z")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, before.Channels)
	assert.Equal(t, []string{"b", "z"}, l.Snapshot().Channels)
}

func TestGateList_PersistFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := failingGateRepo{memory.NewGateRepository(entity.GateSet{Channels: []string{"a"}})}
	l := NewGateList(repo, nil)
	require.NoError(t, l.Load(ctx))

	_, err := l.Add(ctx, entity.GateChannel, "b")
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, []string{"a"}, l.Snapshot().Channels)
}

func TestGateList_EmptyTargetRejected(t *testing.T) {
	l := NewGateList(memory.NewGateRepository(entity.GateSet{}), nil)
	_, err := l.Add(context.Background(), entity.GateChannel, " @ ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
