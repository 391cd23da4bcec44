package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
	"github.com/MjBots-creater/save-restricted-bot/pkg/response"
)

const CtxUserIDKey = "userID"

// AdminAuth accepts a bearer token minted by /admintoken and only lets
// the bot owner through. It sets userID (int64) in the Gin context.
func AdminAuth(jwt *helpers.JWTManager, ownerID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		claims, err := jwt.ParseAdminToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid bearer token", err.Error())
			return
		}
		if claims.UserID != ownerID {
			response.Error[any](c, http.StatusForbidden, "owner only", nil)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
