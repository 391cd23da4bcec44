package handlers

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// UpdateSink decodes and schedules updates pushed by Telegram.
type UpdateSink interface {
	DecodeWebhook(req *http.Request) (*tgbotapi.Update, error)
	Dispatch(ctx context.Context, up tgbotapi.Update)
}

type WebhookHandler struct {
	Sink   UpdateSink
	Logger *logrus.Logger
}

func NewWebhookHandler(sink UpdateSink, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{Sink: sink, Logger: logger}
}

// Receive acknowledges the update immediately; handling continues in
// the background so Telegram does not redeliver slow updates.
func (h *WebhookHandler) Receive(c *gin.Context) {
	up, err := h.Sink.DecodeWebhook(c.Request)
	if err != nil {
		helpers.LogWarn(h.Logger, "bad webhook payload", err, logrus.Fields{"request_id": c.GetString("request_id")})
		c.Status(http.StatusBadRequest)
		return
	}
	h.Sink.Dispatch(c.Request.Context(), *up)
	c.Status(http.StatusOK)
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
