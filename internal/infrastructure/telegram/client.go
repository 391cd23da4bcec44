// Package telegram adapts the Bot API client to the gateway ports.
package telegram

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

// Client implements every transport port on top of one BotAPI.
type Client struct {
	API    *tgbotapi.BotAPI
	Logger *logrus.Logger
}

// New authenticates against the Bot API. The HTTP timeout bounds every
// transport call.
func New(token string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.WithField("bot", api.Self.UserName).Info("telegram authorized")
	}
	return &Client{API: api, Logger: logger}, nil
}

// Username is the bot's public handle without '@'.
func (c *Client) Username() string {
	return c.API.Self.UserName
}

// chatRef splits a chat reference into a numeric id or an @handle.
func chatRef(chat string) (int64, string) {
	chat = strings.TrimSpace(chat)
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return id, ""
	}
	return 0, "@" + strings.TrimPrefix(chat, "@")
}

// call runs fn and gives up when ctx is done. The underlying HTTP request
// still finishes within the client timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, classify(r.err)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Client) MemberStatus(ctx context.Context, chat string, userID int64) (string, error) {
	id, handle := chatRef(chat)
	m, err := call(ctx, func() (tgbotapi.ChatMember, error) {
		return c.API.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: id, SuperGroupUsername: handle, UserID: userID},
		})
	})
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

func (c *Client) ResolveChat(ctx context.Context, chat string) (gateway.ChatInfo, error) {
	id, handle := chatRef(chat)
	ch, err := call(ctx, func() (tgbotapi.Chat, error) {
		return c.API.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: id, SuperGroupUsername: handle},
		})
	})
	if err != nil {
		return gateway.ChatInfo{}, err
	}
	return gateway.ChatInfo{Title: ch.Title, Username: ch.UserName, InviteLink: ch.InviteLink}, nil
}

func (c *Client) Forward(ctx context.Context, from gateway.MessageRef, toChat string) (int, error) {
	toID, toHandle := chatRef(toChat)
	fromID, fromHandle := chatRef(from.Chat)
	cfg := tgbotapi.ForwardConfig{
		BaseChat:            tgbotapi.BaseChat{ChatID: toID, ChannelUsername: toHandle},
		FromChatID:          fromID,
		FromChannelUsername: fromHandle,
		MessageID:           from.MessageID,
	}
	msg, err := call(ctx, func() (tgbotapi.Message, error) { return c.API.Send(cfg) })
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, rows ...[]gateway.Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := call(ctx, func() (tgbotapi.Message, error) { return c.API.Send(msg) })
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.API.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	})
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) { return c.API.Request(cfg) })
	return err
}

func (c *Client) SetCommands(ctx context.Context, cmds []gateway.Command) error {
	out := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.API.Request(tgbotapi.NewSetMyCommands(out...))
	})
	return err
}

// SetWebhook registers url with Telegram. An empty url removes the webhook
// so long polling can be used.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	if url == "" {
		_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
			return c.API.Request(tgbotapi.DeleteWebhookConfig{})
		})
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = call(ctx, func() (*tgbotapi.APIResponse, error) { return c.API.Request(wh) })
	return err
}

func keyboard(rows [][]gateway.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var btns []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		if len(btns) > 0 {
			out = append(out, btns)
		}
	}
	if len(out) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}

var (
	_ gateway.MembershipOracle = (*Client)(nil)
	_ gateway.ChatResolver     = (*Client)(nil)
	_ gateway.MessageForwarder = (*Client)(nil)
	_ gateway.Messenger        = (*Client)(nil)
	_ gateway.CommandMenu      = (*Client)(nil)
)
