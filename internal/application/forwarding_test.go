package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

func TestReceipt_CallbackDataRoundTrip(t *testing.T) {
	r := Receipt{Destination: "-1001234567890", MessageID: 42}
	data := r.CallbackData()
	assert.LessOrEqual(t, len(data), 64)

	got, ok := ParseReceipt(data)
	require.True(t, ok)
	assert.Equal(t, r, got)

	long := Receipt{Destination: strings.Repeat("a", 32), MessageID: 2147483647}
	assert.LessOrEqual(t, len(long.CallbackData()), 64)
}

func TestParseReceipt_Rejects(t *testing.T) {
	for _, in := range []string{"", "force_sub_verify", "stm|x|dest", "stm|0|dest", "stm|5|", "foo|5|dest"} {
		_, ok := ParseReceipt(in)
		assert.False(t, ok, in)
	}
}

func TestRelay(t *testing.T) {
	ctx := context.Background()
	src := gateway.MessageRef{Chat: "7", MessageID: 10}

	t.Run("no destination", func(t *testing.T) {
		f := NewForwarder(&fakeForwarder{}, 0, nil)
		_, err := f.Relay(ctx, src, "")
		assert.ErrorIs(t, err, ErrNoDestination)
	})

	t.Run("success", func(t *testing.T) {
		tr := &fakeForwarder{}
		f := NewForwarder(tr, 0, nil)
		rc, err := f.Relay(ctx, src, "mychannel")
		require.NoError(t, err)
		assert.Equal(t, Receipt{Destination: "mychannel", MessageID: 501}, rc)
		require.Len(t, tr.calls, 1)
		assert.Equal(t, src, tr.calls[0].from)
	})

	t.Run("insufficient rights", func(t *testing.T) {
		tr := &fakeForwarder{errs: map[string]error{"mychannel": gateway.ErrInsufficientRights}}
		f := NewForwarder(tr, 0, nil)
		_, err := f.Relay(ctx, src, "mychannel")
		var fe *ForwardError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "mychannel", fe.Destination)
		assert.ErrorIs(t, err, gateway.ErrInsufficientRights)
		assert.Len(t, tr.calls, 1, "relay is never retried")
	})
}

func TestRelayToRequester(t *testing.T) {
	ctx := context.Background()
	rc := Receipt{Destination: "mychannel", MessageID: 501}

	t.Run("delivered", func(t *testing.T) {
		tr := &fakeForwarder{}
		f := NewForwarder(tr, 0, nil)
		require.NoError(t, f.RelayToRequester(ctx, rc, 7))
		assert.Equal(t, forwardCall{from: gateway.MessageRef{Chat: "mychannel", MessageID: 501}, to: "7"}, tr.calls[0])
	})

	t.Run("requester never started the bot", func(t *testing.T) {
		tr := &fakeForwarder{errs: map[string]error{"7": gateway.ErrUserUnreachable}}
		err := NewForwarder(tr, 0, nil).RelayToRequester(ctx, rc, 7)
		assert.ErrorIs(t, err, ErrRequesterUnreachable)
	})

	t.Run("other failure", func(t *testing.T) {
		tr := &fakeForwarder{errs: map[string]error{"7": errBoom}}
		err := NewForwarder(tr, 0, nil).RelayToRequester(ctx, rc, 7)
		assert.NotErrorIs(t, err, ErrRequesterUnreachable)
		var fe *ForwardError
		assert.True(t, errors.As(err, &fe))
	})
}
