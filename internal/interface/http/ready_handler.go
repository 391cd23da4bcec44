package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// ReadyCheck pings one backing service.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// ReadyHandler reports whether every configured backing service answers.
// Failure details go to the log, not the response.
type ReadyHandler struct {
	Checks  []ReadyCheck
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewReadyHandler(checks []ReadyCheck, timeout time.Duration, logger *logrus.Logger) *ReadyHandler {
	return &ReadyHandler{Checks: checks, Timeout: timeout, Logger: logger}
}

func (h *ReadyHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for _, chk := range h.Checks {
		if err := chk.Ping(ctx); err != nil {
			helpers.LogWarn(h.Logger, "readiness check failed", err, logrus.Fields{"check": chk.Name})
			results[chk.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
