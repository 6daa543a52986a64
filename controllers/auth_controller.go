package controllers

import (
	"errors"
	"net/http"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/resp"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/services"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"github.com/gin-gonic/gin"
)

type PinLoginRequest struct {
	RestaurantID uint   `json:"restaurantId" binding:"required"`
	StaffID      uint   `json:"staffId" binding:"required"`
	Pin          string `json:"pin" binding:"required"`
}

type TableSessionRequest struct {
	RestaurantID uint `json:"restaurantId" binding:"required"`
	TableID      uint `json:"tableId" binding:"required"`
}

type RegisterStaffRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role" binding:"required,oneof=manager waiter kitchen"`
	Pin  string `json:"pin" binding:"required"`
}

type AuthController struct{ Service *services.AuthService }

func NewAuthController(s *services.AuthService) *AuthController { return &AuthController{Service: s} }

// POST /auth/pin
func (a *AuthController) LoginPIN(c *gin.Context) {
	var req PinLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	token, staff, err := a.Service.LoginWithPIN(c.Request.Context(), req.RestaurantID, req.StaffID, req.Pin)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			resp.Unauthorized(c, "invalid credentials")
			return
		}
		resp.ServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": token,
		"staff": staffOut(staff),
	})
}

// POST /auth/table
// Opens a customer session for the table the guest is seated at.
func (a *AuthController) OpenTable(c *gin.Context) {
	var req TableSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	token, table, err := a.Service.OpenTableSession(c.Request.Context(), req.RestaurantID, req.TableID)
	if err != nil {
		resp.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": token,
		"table": gin.H{"id": table.ID, "restaurantId": table.RestaurantID, "number": table.Number},
	})
}

// POST /staff (manager only)
func (a *AuthController) RegisterStaff(c *gin.Context) {
	var req RegisterStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	staff, err := a.Service.RegisterStaff(c.Request.Context(), utils.CurrentTenantID(c), req.Name, req.Role, req.Pin)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, staffOut(staff))
}

func staffOut(s *entity.Staff) gin.H {
	return gin.H{"id": s.ID, "restaurantId": s.RestaurantID, "name": s.Name, "role": s.Role}
}
