package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

func newTestGate(t *testing.T, set entity.GateSet, oracle *fakeOracle) *AccessGate {
	t.Helper()
	gates := NewGateList(memory.NewGateRepository(set), helpers.NewDiscardLogger())
	require.NoError(t, gates.Load(context.Background()))
	settings := NewSettings(ownerID, 24*time.Hour, ShortenerSettings{}, nil, nil)
	return NewAccessGate(gates, oracle, settings, false, 4, 0, helpers.NewDiscardLogger())
}

func TestEvaluate_EmptyGateListsSkipOracle(t *testing.T) {
	oracle := newFakeOracle()
	g := newTestGate(t, entity.GateSet{}, oracle)

	d := g.Evaluate(context.Background(), 7)
	assert.True(t, d.Allowed)
	assert.Zero(t, oracle.calls.Load())
}

func TestEvaluate_PrivilegedSkipsOracle(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("chan", oracleResult{status: gateway.StatusLeft})
	g := newTestGate(t, entity.GateSet{Channels: []string{"chan"}}, oracle)

	d := g.Evaluate(context.Background(), ownerID)
	assert.True(t, d.Allowed)
	assert.Zero(t, oracle.calls.Load())
}

func TestEvaluate_Classification(t *testing.T) {
	tests := []struct {
		name    string
		result  oracleResult
		missing bool
	}{
		{"member", oracleResult{status: gateway.StatusMember}, false},
		{"creator", oracleResult{status: gateway.StatusCreator}, false},
		{"administrator", oracleResult{status: gateway.StatusAdministrator}, false},
		{"restricted", oracleResult{status: gateway.StatusRestricted}, false},
		{"unknown status", oracleResult{status: "whatever"}, false},
		{"left", oracleResult{status: gateway.StatusLeft}, true},
		{"kicked", oracleResult{status: gateway.StatusKicked}, true},
		{"oracle error", oracleResult{err: errBoom}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newFakeOracle()
			oracle.set("chan", tt.result)
			g := newTestGate(t, entity.GateSet{Channels: []string{"chan"}}, oracle)

			d := g.Evaluate(context.Background(), 7)
			assert.Equal(t, !tt.missing, d.Allowed)
			if tt.missing {
				assert.Equal(t, []string{"chan"}, d.MissingChannels)
			} else {
				assert.Empty(t, d.MissingChannels)
			}
		})
	}
}

func TestEvaluate_NoShortCircuit(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("c1", oracleResult{status: gateway.StatusLeft})
	oracle.set("c2", oracleResult{status: gateway.StatusMember})
	oracle.set("c3", oracleResult{err: errBoom})
	oracle.set("g1", oracleResult{status: gateway.StatusKicked})
	oracle.set("g2", oracleResult{status: gateway.StatusLeft})
	g := newTestGate(t, entity.GateSet{Channels: []string{"c1", "c2", "c3"}, Groups: []string{"g1", "g2"}}, oracle)

	d := g.Evaluate(context.Background(), 7)
	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"c1", "c3"}, d.MissingChannels)
	assert.Equal(t, []string{"g1", "g2"}, d.MissingGroups)
	assert.Equal(t, int64(5), oracle.calls.Load())
}

func TestEvaluate_RetryOnceOnError(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("chan", oracleResult{err: errBoom}, oracleResult{status: gateway.StatusMember})
	g := newTestGate(t, entity.GateSet{Channels: []string{"chan"}}, oracle)
	g.RetryOnce = true

	d := g.Evaluate(context.Background(), 7)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(2), oracle.calls.Load())
}

func TestEvaluate_LeftIsNotRetried(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("chan", oracleResult{status: gateway.StatusLeft}, oracleResult{status: gateway.StatusMember})
	g := newTestGate(t, entity.GateSet{Channels: []string{"chan"}}, oracle)
	g.RetryOnce = true

	d := g.Evaluate(context.Background(), 7)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(1), oracle.calls.Load())
}

func TestEvaluate_SelfHealAfterJoining(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("C", oracleResult{status: gateway.StatusLeft})
	g := newTestGate(t, entity.GateSet{Channels: []string{"C"}}, oracle)

	d := g.Evaluate(context.Background(), 7)
	require.False(t, d.Allowed)
	assert.Equal(t, []string{"C"}, d.MissingChannels)

	oracle.set("C", oracleResult{status: gateway.StatusMember})
	d = g.Evaluate(context.Background(), 7)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(2), oracle.calls.Load())
}

func TestEvaluate_ConcurrentWithMutations(t *testing.T) {
	oracle := newFakeOracle()
	g := newTestGate(t, entity.GateSet{Channels: []string{"base"}}, oracle)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.Evaluate(ctx, 7)
		}()
		go func() {
			defer wg.Done()
			_, _ = g.Gates.Add(ctx, entity.GateGroup, "grp")
			_, _ = g.Gates.Remove(ctx, entity.GateGroup, "grp")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"base"}, g.Gates.Snapshot().Channels)
}

func TestRemediate(t *testing.T) {
	resolver := fakeResolver{infos: map[string]gateway.ChatInfo{
		"news":    {Title: "News", Username: "news"},
		"-100123": {Title: "Private Group", InviteLink: "https://t.me/+abc"},
	}}
	d := Decision{MissingChannels: []string{"news", "ghost"}, MissingGroups: []string{"-100123", "lost"}}

	g := newTestGate(t, entity.GateSet{}, newFakeOracle())
	got := g.Remediate(context.Background(), resolver, d)
	assert.Equal(t, []JoinAction{
		{Label: "Join News", URL: "https://t.me/news"},
		{Label: "Join Channel", URL: "https://t.me/ghost"},
		{Label: "Join Private Group", URL: "https://t.me/+abc"},
		{Label: "Join Group", URL: "https://t.me/lost"},
	}, got)
}

func TestEvaluate_StalledOracleTimesOut(t *testing.T) {
	stall := &stallingTransport{}
	gates := NewGateList(memory.NewGateRepository(entity.GateSet{Channels: []string{"C"}, Groups: []string{"G"}}), helpers.NewDiscardLogger())
	require.NoError(t, gates.Load(context.Background()))
	settings := NewSettings(ownerID, 24*time.Hour, ShortenerSettings{}, nil, nil)
	g := NewAccessGate(gates, stall, settings, true, 2, 50*time.Millisecond, helpers.NewDiscardLogger())

	start := time.Now()
	d := g.Evaluate(context.Background(), 7)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"C"}, d.MissingChannels)
	assert.Equal(t, []string{"G"}, d.MissingGroups)
	assert.Equal(t, int64(4), stall.calls.Load(), "one retry per target")
}

func TestRemediate_StalledResolverFallsBack(t *testing.T) {
	g := newTestGate(t, entity.GateSet{}, newFakeOracle())
	g.Timeout = 50 * time.Millisecond
	d := Decision{MissingChannels: []string{"news"}, MissingGroups: []string{"crew"}}

	start := time.Now()
	got := g.Remediate(context.Background(), &stallingTransport{}, d)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []JoinAction{
		{Label: "Join Channel", URL: "https://t.me/news"},
		{Label: "Join Group", URL: "https://t.me/crew"},
	}, got)
}
