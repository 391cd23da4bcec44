package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

const ownerID int64 = 1000

type oracleResult struct {
	status string
	err    error
}

type fakeOracle struct {
	mu      sync.Mutex
	results map[string][]oracleResult // consumed in order, last one sticks
	calls   atomic.Int64
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{results: map[string][]oracleResult{}}
}

func (o *fakeOracle) set(chat string, rs ...oracleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[chat] = rs
}

func (o *fakeOracle) MemberStatus(_ context.Context, chat string, _ int64) (string, error) {
	o.calls.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	rs := o.results[chat]
	if len(rs) == 0 {
		return gateway.StatusMember, nil
	}
	r := rs[0]
	if len(rs) > 1 {
		o.results[chat] = rs[1:]
	}
	return r.status, r.err
}

type fakeResolver struct {
	infos map[string]gateway.ChatInfo
}

func (r fakeResolver) ResolveChat(_ context.Context, chat string) (gateway.ChatInfo, error) {
	info, ok := r.infos[chat]
	if !ok {
		return gateway.ChatInfo{}, gateway.ErrChatNotFound
	}
	return info, nil
}

// stallingTransport never answers; every call waits for ctx.
type stallingTransport struct {
	calls atomic.Int64
}

func (s *stallingTransport) MemberStatus(ctx context.Context, _ string, _ int64) (string, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *stallingTransport) ResolveChat(ctx context.Context, _ string) (gateway.ChatInfo, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return gateway.ChatInfo{}, ctx.Err()
}

type forwardCall struct {
	from gateway.MessageRef
	to   string
}

type fakeForwarder struct {
	mu    sync.Mutex
	calls []forwardCall
	errs  map[string]error
	next  int
}

func (f *fakeForwarder) Forward(_ context.Context, from gateway.MessageRef, to string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, forwardCall{from: from, to: to})
	if err := f.errs[to]; err != nil {
		return 0, err
	}
	f.next++
	return 500 + f.next, nil
}

type sentText struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentText
	errs   map[int64]error
	onSend func(n int) // called after each successful send with the running total
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string, _ ...[]gateway.Button) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[chatID]; err != nil {
		return 0, err
	}
	m.sent = append(m.sent, sentText{chatID: chatID, text: text})
	if m.onSend != nil {
		m.onSend(len(m.sent))
	}
	return len(m.sent), nil
}

func (m *fakeMessenger) EditText(context.Context, int64, int, string) error { return nil }

func (m *fakeMessenger) AnswerCallback(context.Context, string, string, bool) error { return nil }

type fakeShortener struct {
	short string
	err   error
	delay time.Duration
	calls int
}

func (s *fakeShortener) Shorten(ctx context.Context, _, _, _ string) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.short, s.err
}

type fakePublisher struct {
	mu     sync.Mutex
	bodies []any
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, _ string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

type fakeSettingsStore struct {
	saved  *entity.RuntimeSettings
	err    error
	writes int
}

func (s *fakeSettingsStore) LoadSettings(context.Context) (entity.RuntimeSettings, bool, error) {
	if s.err != nil {
		return entity.RuntimeSettings{}, false, s.err
	}
	if s.saved == nil {
		return entity.RuntimeSettings{}, false, nil
	}
	return *s.saved, true, nil
}

func (s *fakeSettingsStore) SaveSettings(_ context.Context, rs entity.RuntimeSettings) error {
	s.writes++
	if s.err != nil {
		return s.err
	}
	s.saved = &rs
	return nil
}

var errBoom = errors.New("boom")
