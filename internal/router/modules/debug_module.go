package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/MjBots-creater/save-restricted-bot/internal/interface/middleware"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

type DebugModule struct {
	Limiter *helpers.RedisLimiter
}

func NewDebugModule(limiter *helpers.RedisLimiter) *DebugModule {
	return &DebugModule{Limiter: limiter}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar counters, rate-limited per IP; private addresses bypass
	rl := middleware.RateLimit(m.Limiter, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
