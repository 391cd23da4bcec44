package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

const receiptPrefix = "stm"

// Receipt locates a message after it was relayed into a destination.
type Receipt struct {
	Destination string
	MessageID   int
}

// CallbackData encodes the receipt into button callback data
// ("stm|<message id>|<destination>", at most 64 bytes).
func (r Receipt) CallbackData() string {
	return receiptPrefix + "|" + strconv.Itoa(r.MessageID) + "|" + r.Destination
}

// ParseReceipt decodes CallbackData. ok is false for foreign data.
func ParseReceipt(data string) (Receipt, bool) {
	parts := strings.SplitN(data, "|", 3)
	if len(parts) != 3 || parts[0] != receiptPrefix || parts[2] == "" {
		return Receipt{}, false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return Receipt{}, false
	}
	return Receipt{Destination: parts[2], MessageID: id}, true
}

// Forwarder duplicates messages by reference through the transport.
type Forwarder struct {
	Transport gateway.MessageForwarder
	Timeout   time.Duration
	Logger    *logrus.Logger
}

func NewForwarder(transport gateway.MessageForwarder, timeout time.Duration, logger *logrus.Logger) *Forwarder {
	return &Forwarder{Transport: transport, Timeout: timeout, Logger: logger}
}

// Relay copies src into destination. Failures are returned as
// *ForwardError and never retried.
func (f *Forwarder) Relay(ctx context.Context, src gateway.MessageRef, destination string) (Receipt, error) {
	if destination == "" {
		return Receipt{}, ErrNoDestination
	}
	c, cancel := f.bound(ctx)
	defer cancel()

	id, err := f.Transport.Forward(c, src, destination)
	if err != nil {
		if f.Logger != nil {
			f.Logger.WithError(err).WithFields(logrus.Fields{
				"destination": destination,
				"chat_id":     src.Chat,
			}).Warn("relay failed")
		}
		return Receipt{}, &ForwardError{Destination: destination, Err: err}
	}
	return Receipt{Destination: destination, MessageID: id}, nil
}

// RelayToRequester copies an already relayed message into the requester's
// private chat. ErrRequesterUnreachable means the requester has not
// started a conversation with the bot.
func (f *Forwarder) RelayToRequester(ctx context.Context, r Receipt, requesterID int64) error {
	c, cancel := f.bound(ctx)
	defer cancel()

	to := strconv.FormatInt(requesterID, 10)
	_, err := f.Transport.Forward(c, gateway.MessageRef{Chat: r.Destination, MessageID: r.MessageID}, to)
	if err == nil {
		return nil
	}
	if errors.Is(err, gateway.ErrUserUnreachable) || errors.Is(err, gateway.ErrChatNotFound) {
		return fmt.Errorf("%w: %w", ErrRequesterUnreachable, err)
	}
	if f.Logger != nil {
		f.Logger.WithError(err).WithField("user_id", requesterID).Warn("relay to requester failed")
	}
	return &ForwardError{Destination: to, Err: err}
}

func (f *Forwarder) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.Timeout)
}
