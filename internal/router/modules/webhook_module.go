package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/MjBots-creater/save-restricted-bot/internal/interface/http"
)

// WebhookModule receives Telegram updates and serves the liveness and
// readiness endpoints. The webhook route is only mounted when Path is set.
type WebhookModule struct {
	Handler *handlers.WebhookHandler
	Path    string
	Ready   *handlers.ReadyHandler
}

func NewWebhookModule(h *handlers.WebhookHandler, path string, ready *handlers.ReadyHandler) *WebhookModule {
	return &WebhookModule{Handler: h, Path: path, Ready: ready}
}

func (m *WebhookModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", handlers.Health)
	if m.Ready != nil {
		rg.GET("/readyz", m.Ready.Ready)
	}
	if m.Handler != nil && m.Path != "" {
		rg.POST(m.Path, m.Handler.Receive)
	}
}
