package controllers

import (
	"net/http"
	"strconv"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/idempotency"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/resp"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/services"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

type OrderController struct {
	Service *services.OrderService
	Idem    *idempotency.Cache

	// creates in flight, keyed like Idem
	creating singleflight.Group
}

func NewOrderController(s *services.OrderService, idem *idempotency.Cache) *OrderController {
	return &OrderController{Service: s, Idem: idem}
}

// ===== Create / add items =====

// POST /orders
func (oc *OrderController) Create(c *gin.Context) {
	tenantID := utils.CurrentTenantID(c)

	var req services.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	if !sameTable(c, req.TableID) {
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		o, err := oc.Service.Create(c.Request.Context(), tenantID, &req)
		if err != nil {
			resp.Error(c, err)
			return
		}
		resp.Created(c, o)
		return
	}

	// retries sharing a key wait for the create in flight, later ones read
	// the order it produced
	key = strconv.FormatUint(uint64(tenantID), 10) + ":" + key
	v, err, _ := oc.creating.Do(key, func() (any, error) {
		if id, ok := oc.Idem.Get(key); ok {
			return oc.Service.Get(c.Request.Context(), tenantID, id.(uint))
		}
		o, err := oc.Service.Create(c.Request.Context(), tenantID, &req)
		if err != nil {
			return nil, err
		}
		oc.Idem.Set(key, o.ID)
		return o, nil
	})
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, v)
}

// POST /orders/:id/items
func (oc *OrderController) AddItems(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.AddItemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	if utils.CurrentTableID(c) != 0 {
		cur, err := oc.Service.Get(c.Request.Context(), utils.CurrentTenantID(c), orderID)
		if err != nil {
			resp.Error(c, err)
			return
		}
		if !sameTable(c, cur.TableID) {
			return
		}
	}
	o, err := oc.Service.AddItems(c.Request.Context(), utils.CurrentTenantID(c), orderID, &req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// ===== Read =====

// GET /orders/:id
func (oc *OrderController) Detail(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := oc.Service.Get(c.Request.Context(), utils.CurrentTenantID(c), orderID)
	if err != nil {
		resp.Error(c, err)
		return
	}
	if !sameTable(c, o.TableID) {
		return
	}
	resp.OK(c, o)
}

// GET /orders?status=&tableId=&pageNumber=&pageSize=&beforeId=
func (oc *OrderController) List(c *gin.Context) {
	var f repository.OrderFilter
	if s := c.Query("status"); s != "" {
		st, ok := entity.ParseOrderStatus(s)
		if !ok {
			resp.BadRequest(c, "unknown status "+s)
			return
		}
		f.Status = st
	}
	if s := c.Query("tableId"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			f.TableID = uint(v)
		}
	}
	if s := c.Query("beforeId"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			f.BeforeID = uint(v)
		}
	}
	f.PageNumber, _ = strconv.Atoi(c.DefaultQuery("pageNumber", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	out, err := oc.Service.List(c.Request.Context(), utils.CurrentTenantID(c), f)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, out)
}

// GET /orders/:id/transitions/:status
func (oc *OrderController) Preview(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	target := entity.OrderStatus(c.Param("status"))
	ev, err := oc.Service.Preview(c.Request.Context(), utils.CurrentTenantID(c), orderID, target)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, ev)
}

// ===== Status changes =====

// PATCH /orders/:id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.ChangeStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	// unknown names are rejected by the validator as invalid transitions
	target := entity.OrderStatus(req.Status)

	o, err := oc.Service.ChangeStatus(c.Request.Context(), utils.CurrentTenantID(c), orderID, target,
		services.Confirmation{Confirmed: req.Confirm, ItemIDs: req.ConfirmItemIDs})
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// PATCH /orders/:id/items/:itemId/status
func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var req services.ChangeItemStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := oc.Service.ChangeItemStatus(c.Request.Context(), utils.CurrentTenantID(c), orderID, itemID,
		entity.ItemStatus(req.Status))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, o)
}

// DELETE /orders/:id (manager only)
func (oc *OrderController) Delete(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := oc.Service.Delete(c.Request.Context(), utils.CurrentTenantID(c), orderID); err != nil {
		resp.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------- Helper ----------------

// sameTable keeps a customer session to orders of its own table. Staff
// tokens carry no table and pass.
func sameTable(c *gin.Context, tableID uint) bool {
	if t := utils.CurrentTableID(c); t != 0 && t != tableID {
		resp.Forbidden(c, "order belongs to another table")
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		resp.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
