package middlewares

import (
	"strings"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/resp"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware checks the bearer token and, when roles are given, requires
// one of them. userId, restaurantId, role and tableId are stored on the context.
func AuthMiddleware(secret string, requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			resp.Unauthorized(c, "missing or invalid token")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(h, "Bearer "), secret)
		if err != nil {
			resp.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		if !setClaims(c, claims, requiredRoles) {
			resp.Forbidden(c, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.Claims, requiredRoles []string) bool {
	c.Set("userId", claims.UserID)
	c.Set("restaurantId", claims.RestaurantID)
	c.Set("role", claims.Role)
	c.Set("tableId", claims.TableID)
	c.Set("claims", claims)

	if len(requiredRoles) == 0 {
		return true
	}
	for _, r := range requiredRoles {
		if claims.Role == r {
			return true
		}
	}
	return false
}
