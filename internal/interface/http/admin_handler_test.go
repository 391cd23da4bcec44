package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/search"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
	"github.com/MjBots-creater/save-restricted-bot/pkg/validation"
)

var initOnce sync.Once

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type fakeSearcher struct {
	docs []search.UserDoc
	err  error
	q    string
	size int
}

func (f *fakeSearcher) Search(_ context.Context, q string, size int) ([]search.UserDoc, error) {
	f.q, f.size = q, size
	return f.docs, f.err
}

type adminHarness struct {
	engine   *gin.Engine
	gates    *application.GateList
	settings *application.Settings
	users    *memory.UserRepository
}

func newAdminHarness(t *testing.T, searcher UserSearcher) *adminHarness {
	t.Helper()
	initOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		validation.Init()
	})
	logger := helpers.NewDiscardLogger()
	gates := application.NewGateList(memory.NewGateRepository(entity.GateSet{Channels: []string{"news"}}), logger)
	require.NoError(t, gates.Load(context.Background()))
	settings := application.NewSettings(1, 24*time.Hour, application.ShortenerSettings{}, nil, logger)
	users := memory.NewUserRepository()
	svc := application.NewService(users, nil, logger)

	h := NewAdminHandler(gates, settings, svc, searcher, logger)
	r := gin.New()
	api := r.Group("/api/admin")
	api.GET("/gates", h.ListGates)
	api.POST("/gates", h.AddGate)
	api.DELETE("/gates", h.RemoveGate)
	api.GET("/verification-window", h.GetWindow)
	api.PUT("/verification-window", h.SetWindow)
	api.GET("/users/count", h.CountUsers)
	api.GET("/users/search", h.SearchUsers)
	return &adminHarness{engine: r, gates: gates, settings: settings, users: users}
}

func (h *adminHarness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestAdminHandler_Gates(t *testing.T) {
	h := newAdminHarness(t, nil)

	w, env := h.do(t, http.MethodPost, "/api/admin/gates", gin.H{"kind": "group", "target": "@chatroom"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, []string{"chatroom"}, h.gates.Snapshot().Groups)

	w, env = h.do(t, http.MethodPost, "/api/admin/gates", gin.H{"kind": "group", "target": "chatroom"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gate already present", env.Message)

	w, env = h.do(t, http.MethodGet, "/api/admin/gates", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var set gateSetResponse
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Equal(t, []string{"news"}, set.Channels)
	assert.Equal(t, []string{"chatroom"}, set.Groups)

	w, _ = h.do(t, http.MethodDelete, "/api/admin/gates", gin.H{"kind": "channel", "target": "news"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.gates.Snapshot().Channels)

	w, env = h.do(t, http.MethodDelete, "/api/admin/gates", gin.H{"kind": "channel", "target": "news"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestAdminHandler_GateValidation(t *testing.T) {
	h := newAdminHarness(t, nil)

	w, env := h.do(t, http.MethodPost, "/api/admin/gates", gin.H{"kind": "forum", "target": "a b"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Equal(t, "must be one of: channel, group", details["kind"])
	assert.Equal(t, "must be a chat id or @handle", details["target"])
	assert.Equal(t, []string{"news"}, h.gates.Snapshot().Channels)
}

func TestAdminHandler_Window(t *testing.T) {
	h := newAdminHarness(t, nil)

	w, env := h.do(t, http.MethodPut, "/api/admin/verification-window", gin.H{"hours": 48})
	assert.Equal(t, http.StatusOK, w.Code, string(env.Error))
	assert.Equal(t, 48*time.Hour, h.settings.Window())

	w, _ = h.do(t, http.MethodPut, "/api/admin/verification-window", gin.H{"hours": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 48*time.Hour, h.settings.Window())

	w, env = h.do(t, http.MethodGet, "/api/admin/verification-window", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hours":48}`, string(env.Data))
}

func TestAdminHandler_Users(t *testing.T) {
	searcher := &fakeSearcher{docs: []search.UserDoc{{ID: 42, DisplayName: "Ada"}}}
	h := newAdminHarness(t, searcher)
	ctx := context.Background()
	for _, id := range []int64{42, 43} {
		_, err := h.users.Ensure(ctx, &entity.User{ID: id})
		require.NoError(t, err)
	}

	w, env := h.do(t, http.MethodGet, "/api/admin/users/count", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, string(env.Data))

	w, env = h.do(t, http.MethodGet, "/api/admin/users/search?q=ada&size=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", searcher.q)
	assert.Equal(t, 5, searcher.size)
	var docs []search.UserDoc
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, int64(42), docs[0].ID)

	w, _ = h.do(t, http.MethodGet, "/api/admin/users/search?q=ada&size=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	searcher.err = errors.New("es down")
	w, _ = h.do(t, http.MethodGet, "/api/admin/users/search?q=ada", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAdminHandler_SearchDisabled(t *testing.T) {
	h := newAdminHarness(t, nil)
	w, env := h.do(t, http.MethodGet, "/api/admin/users/search?q=ada", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "user search is disabled", env.Message)
}

type fakeSink struct {
	mu  sync.Mutex
	got []tgbotapi.Update
	err error
}

func (f *fakeSink) DecodeWebhook(req *http.Request) (*tgbotapi.Update, error) {
	if f.err != nil {
		return nil, f.err
	}
	var up tgbotapi.Update
	if err := json.NewDecoder(req.Body).Decode(&up); err != nil {
		return nil, err
	}
	return &up, nil
}

func (f *fakeSink) Dispatch(_ context.Context, up tgbotapi.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, up)
}

func TestWebhookHandler_Receive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &fakeSink{}
	h := NewWebhookHandler(sink, helpers.NewDiscardLogger())
	r := gin.New()
	r.POST("/telegram/webhook", h.Receive)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewBufferString(`{"update_id":7}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sink.got, 1)
	assert.Equal(t, 7, sink.got[0].UpdateID)

	req = httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewBufferString(`not json`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, sink.got, 1)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbErr := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	var sawDeadline bool
	h := NewReadyHandler([]ReadyCheck{
		{Name: "postgres", Ping: func(context.Context) error { return dbErr }},
		{Name: "redis", Ping: func(ctx context.Context) error {
			_, sawDeadline = ctx.Deadline()
			return nil
		}},
	}, time.Second, helpers.NewDiscardLogger())
	r := gin.New()
	r.GET("/readyz", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"postgres":"down","redis":"ok"}}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.True(t, sawDeadline)

	dbErr = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"ok","redis":"ok"}}`, w.Body.String())
}
