package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/MjBots-creater/save-restricted-bot/internal/interface/http"
	"github.com/MjBots-creater/save-restricted-bot/internal/interface/middleware"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// AdminModule exposes the owner commands under /api/admin.
// Every route requires an owner bearer token.
type AdminModule struct {
	Handler *handlers.AdminHandler
	JWT     *helpers.JWTManager
	OwnerID int64
	Limiter *helpers.RedisLimiter
}

func NewAdminModule(h *handlers.AdminHandler, jwt *helpers.JWTManager, ownerID int64, limiter *helpers.RedisLimiter) *AdminModule {
	return &AdminModule{Handler: h, JWT: jwt, OwnerID: ownerID, Limiter: limiter}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.AdminAuth(m.JWT, m.OwnerID))
	auth.Use(middleware.RateLimit(m.Limiter, middleware.KeyByUserID(), nil))
	{
		auth.GET("/gates", m.Handler.ListGates)
		auth.POST("/gates", m.Handler.AddGate)
		auth.DELETE("/gates", m.Handler.RemoveGate)
		auth.GET("/verification-window", m.Handler.GetWindow)
		auth.PUT("/verification-window", m.Handler.SetWindow)
		auth.GET("/users/count", m.Handler.CountUsers)
		auth.GET("/users/search", m.Handler.SearchUsers)
	}
}
