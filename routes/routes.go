package routes

import (
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/controllers"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/middlewares"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 10 * time.Second

type Deps struct {
	JWTSecret   string
	CORSOrigins []string

	Auth   *controllers.AuthController
	Orders *controllers.OrderController
	Hub    *ws.OrderHub
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(metrics.PrometheusMiddleware())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	a := r.Group("/auth")
	{
		a.POST("/pin", d.Auth.LoginPIN)
		a.POST("/table", d.Auth.OpenTable)
	}

	staff := []string{entity.RoleManager, entity.RoleWaiter, entity.RoleKitchen}
	withCustomer := append([]string{entity.RoleCustomer}, staff...)
	timeout := middlewares.RequestTimeout(requestTimeout)

	// Staff accounts (manager)
	r.POST("/staff", middlewares.AuthMiddleware(d.JWTSecret, entity.RoleManager), d.Auth.RegisterStaff)

	// Orders: customers at a table may open an order for it and add to it
	ordering := r.Group("/orders", middlewares.AuthMiddleware(d.JWTSecret, withCustomer...), timeout)
	{
		ordering.POST("", d.Orders.Create)
		ordering.POST("/:id/items", d.Orders.AddItems)
		ordering.GET("/:id", d.Orders.Detail)
	}

	o := r.Group("/orders", middlewares.AuthMiddleware(d.JWTSecret, staff...), timeout)
	{
		o.GET("", d.Orders.List)
		o.GET("/:id/transitions/:status", d.Orders.Preview)
		o.PATCH("/:id/status", d.Orders.UpdateStatus)
		o.PATCH("/:id/items/:itemId/status", d.Orders.UpdateItemStatus)
	}

	r.DELETE("/orders/:id", middlewares.AuthMiddleware(d.JWTSecret, entity.RoleManager), timeout, d.Orders.Delete)

	// Push channel
	r.GET("/ws/orders", middlewares.WSAuthMiddleware(d.JWTSecret), d.Hub.HandleWebSocket)
}
