package utils

import "github.com/gin-gonic/gin"

func CurrentUserID(c *gin.Context) uint {
	return c.GetUint("userId")
}

// CurrentTenantID is the restaurant the authenticated caller belongs to.
func CurrentTenantID(c *gin.Context) uint {
	return c.GetUint("restaurantId")
}

// CurrentTableID is the table a customer session is bound to, 0 for staff.
func CurrentTableID(c *gin.Context) uint {
	return c.GetUint("tableId")
}

func CurrentRole(c *gin.Context) string {
	return c.GetString("role")
}
