package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"}, gateway.ErrRateLimited},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, gateway.ErrChatNotFound},
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, gateway.ErrUserUnreachable},
		{"never started", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot can't initiate conversation with a user"}, gateway.ErrUserUnreachable},
		{"not admin", &tgbotapi.Error{Code: 400, Message: "Bad Request: need administrator rights in the channel chat"}, gateway.ErrInsufficientRights},
		{"not member", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot is not a member of the channel chat"}, gateway.ErrInsufficientRights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	assert.NoError(t, classify(nil))

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, classify(plain))

	other := &tgbotapi.Error{Code: 400, Message: "Bad Request: message to forward not found"}
	assert.Equal(t, other, classify(other))
}

func TestChatRef(t *testing.T) {
	id, handle := chatRef("-1001234")
	assert.Equal(t, int64(-1001234), id)
	assert.Empty(t, handle)

	id, handle = chatRef("@news")
	assert.Zero(t, id)
	assert.Equal(t, "@news", handle)

	_, handle = chatRef("news")
	assert.Equal(t, "@news", handle)
}
