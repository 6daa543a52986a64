// middlewares/ws_auth.go
package middlewares

import (
	"net/http"
	"strings"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"github.com/gin-gonic/gin"
)

// WSAuthMiddleware reads the JWT from the token query parameter first, since
// browsers cannot set headers on a websocket handshake, then from the header.
func WSAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		if t := c.Query("token"); t != "" {
			tokenStr = t
		} else {
			h := c.GetHeader("Authorization")
			if h != "" && strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimPrefix(h, "Bearer ")
			}
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing token"})
			return
		}

		claims, err := utils.ParseToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}
		setClaims(c, claims, nil)

		c.Next()
	}
}
