// Package gateway declares the ports to external collaborators: the bot
// messaging transport and the URL shortener.
package gateway

import (
	"context"
	"errors"
)

var (
	ErrInsufficientRights = errors.New("insufficient rights")
	ErrChatNotFound       = errors.New("chat not found")
	// ErrUserUnreachable is returned when the recipient never started a
	// private conversation with the bot or blocked it.
	ErrUserUnreachable = errors.New("user unreachable")
	ErrRateLimited     = errors.New("rate limited")
)

// Membership statuses as reported by the transport.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// MembershipOracle answers whether a user belongs to a chat.
type MembershipOracle interface {
	MemberStatus(ctx context.Context, chat string, userID int64) (string, error)
}

// ChatInfo is the human-facing description of a chat.
type ChatInfo struct {
	Title      string
	Username   string
	InviteLink string
}

type ChatResolver interface {
	ResolveChat(ctx context.Context, chat string) (ChatInfo, error)
}

// MessageRef points at a message inside a chat. Chat is either a numeric id
// or a public handle without '@'.
type MessageRef struct {
	Chat      string
	MessageID int
}

// MessageForwarder duplicates a message into another chat and returns the
// new message id.
type MessageForwarder interface {
	Forward(ctx context.Context, from MessageRef, toChat string) (int, error)
}

// Button is an inline action attached to a message. Exactly one of URL and
// Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

// Messenger sends and edits text messages.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, rows ...[]Button) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Command is an entry of the bot command menu.
type Command struct {
	Name        string
	Description string
}

type CommandMenu interface {
	SetCommands(ctx context.Context, cmds []Command) error
}

// Shortener turns a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, endpoint, apiKey, longURL string) (string, error)
}
