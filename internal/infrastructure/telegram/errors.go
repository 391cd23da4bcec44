package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

// classify maps Bot API failures onto the gateway sentinels. Unknown
// failures are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	desc := strings.ToLower(apiErr.Message)

	var sentinel error
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		sentinel = gateway.ErrRateLimited
	case strings.Contains(desc, "chat not found"):
		sentinel = gateway.ErrChatNotFound
	case strings.Contains(desc, "bot was blocked"),
		strings.Contains(desc, "can't initiate conversation"),
		strings.Contains(desc, "user is deactivated"),
		strings.Contains(desc, "user not found"):
		sentinel = gateway.ErrUserUnreachable
	case strings.Contains(desc, "not enough rights"),
		strings.Contains(desc, "administrator rights"),
		strings.Contains(desc, "chat_write_forbidden"),
		strings.Contains(desc, "have no rights"),
		strings.Contains(desc, "bot is not a member"),
		strings.Contains(desc, "bot was kicked"):
		sentinel = gateway.ErrInsufficientRights
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, apiErr.Message)
}
