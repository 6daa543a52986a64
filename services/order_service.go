package services

import (
	"context"
	"errors"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"

	log "github.com/sirupsen/logrus"
)

type OrderConfig struct {
	DefaultPrepTimeMinutes int
	// extra attempts after a version conflict before ErrConflictRetry is returned
	ConflictRetries int
}

type OrderService struct {
	Repo      *repository.OrderRepository
	Catalog   Catalog
	Engine    *CascadeEngine
	Publisher EventPublisher
	Config    OrderConfig
	Now       func() time.Time
}

func NewOrderService(
	repo *repository.OrderRepository,
	catalog Catalog,
	publisher EventPublisher,
	cfg OrderConfig,
) *OrderService {
	if cfg.DefaultPrepTimeMinutes <= 0 {
		cfg.DefaultPrepTimeMinutes = 15
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	return &OrderService{
		Repo:      repo,
		Catalog:   catalog,
		Engine:    NewCascadeEngine(repo),
		Publisher: publisher,
		Config:    cfg,
		Now:       time.Now,
	}
}

// ----- DTOs from Controller -----

type OrderItemIn struct {
	DishID    uint   `json:"dishId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Note      string `json:"note"`
	OptionIDs []uint `json:"optionIds"`
}

type CreateOrderReq struct {
	TableID uint          `json:"tableId" binding:"required"`
	Items   []OrderItemIn `json:"items" binding:"required,min=1,dive"`
}

type AddItemsReq struct {
	Items []OrderItemIn `json:"items" binding:"required,min=1,dive"`
}

type ChangeStatusReq struct {
	Status         string `json:"status" binding:"required"`
	Confirm        bool   `json:"confirm"`
	ConfirmItemIDs []uint `json:"confirmItemIds"`
}

type ChangeItemStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// Confirmation is the caller's consent to a cascade. With ItemIDs empty the
// caller accepts the cascade computed on the first read; otherwise only the
// listed items may move.
type Confirmation struct {
	Confirmed bool
	ItemIDs   []uint
}

type OrderListOut struct {
	Items      []entity.Order `json:"items"`
	Total      int64          `json:"total"`
	PageNumber int            `json:"pageNumber"`
	PageSize   int            `json:"pageSize"`
}

// ----- Create / add items -----

// Create opens a new order in Unsubmit with its first items.
func (s *OrderService) Create(ctx context.Context, tenantID uint, req *CreateOrderReq) (*entity.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("items is required")
	}
	if _, err := s.Catalog.Table(ctx, tenantID, req.TableID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("table %d not found", req.TableID)
		}
		return nil, err
	}
	items, prep, err := s.buildItems(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	order := entity.Order{
		RestaurantID:    tenantID,
		TableID:         req.TableID,
		Status:          entity.OrderUnsubmit,
		PrepTimeMinutes: prep,
		Items:           items,
	}
	if err := s.Repo.CreateOrder(ctx, &order); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id":      order.ID,
		"restaurant_id": tenantID,
		"table_id":      order.TableID,
		"items":         len(items),
	}).Info("order created")
	s.publish(tenantID, entity.OrderCreated, &order)

	created, err := s.Repo.GetOrder(ctx, tenantID, order.ID)
	if err != nil {
		return nil, err
	}
	return decorate(created, s.Now()), nil
}

// AddItems appends unconfirmed items to an order still waiting on the kitchen.
func (s *OrderService) AddItems(ctx context.Context, tenantID, orderID uint, req *AddItemsReq) (*entity.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("items is required")
	}
	items, prep, err := s.buildItems(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	updated, err := s.withRetry(ctx, "add_items", orderID, func(int) (*entity.Order, error) {
		o, err := s.Repo.GetOrder(ctx, tenantID, orderID)
		if err != nil {
			return nil, err
		}
		if !o.Status.IsActiveWait() {
			return nil, &apperr.TransitionError{
				From: string(o.Status), To: string(o.Status),
				Reason: "items can only be added before the order is completed",
			}
		}
		batch := make([]entity.OrderItem, len(items))
		copy(batch, items)
		if err := s.Repo.AddItems(ctx, o.ID, o.Version, batch, prep); err != nil {
			return nil, err
		}
		return s.Repo.GetOrder(ctx, tenantID, orderID)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"items":    len(items),
		"version":  updated.Version,
	}).Info("order items added")
	s.publish(tenantID, entity.OrderItemUpdated, updated)
	return decorate(updated, s.Now()), nil
}

// buildItems snapshots dish and modifier data into new order lines and
// returns the prep-time budget they need.
func (s *OrderService) buildItems(ctx context.Context, tenantID uint, in []OrderItemIn) ([]entity.OrderItem, int, error) {
	prep := 0
	out := make([]entity.OrderItem, 0, len(in))
	for _, it := range in {
		if it.Quantity < 1 {
			return nil, 0, apperr.Validation("quantity must be at least 1")
		}
		dish, err := s.Catalog.Dish(ctx, tenantID, it.DishID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, 0, apperr.Validation("dish %d not found", it.DishID)
			}
			return nil, 0, err
		}
		if !dish.Available {
			return nil, 0, apperr.Validation("dish %q is not available", dish.Name)
		}
		if dish.PrepTimeMinutes > prep {
			prep = dish.PrepTimeMinutes
		}

		mods := make([]entity.OrderItemModifier, 0, len(it.OptionIDs))
		for _, optID := range it.OptionIDs {
			opt, err := s.Catalog.ModifierOption(ctx, tenantID, optID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil, 0, apperr.Validation("modifier option %d not found", optID)
				}
				return nil, 0, err
			}
			mods = append(mods, entity.OrderItemModifier{OptionID: opt.ID, OptionName: opt.Name, Price: opt.Price})
		}

		out = append(out, entity.OrderItem{
			DishID:    dish.ID,
			DishName:  dish.Name,
			UnitPrice: dish.Price,
			Quantity:  it.Quantity,
			Note:      it.Note,
			Status:    entity.ItemUnconfirmed,
			Modifiers: mods,
		})
	}
	if prep == 0 {
		prep = s.Config.DefaultPrepTimeMinutes
	}
	return out, prep, nil
}

// ----- Read -----

func (s *OrderService) Get(ctx context.Context, tenantID, orderID uint) (*entity.Order, error) {
	o, err := s.Repo.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return decorate(o, s.Now()), nil
}

func (s *OrderService) List(ctx context.Context, tenantID uint, f repository.OrderFilter) (*OrderListOut, error) {
	if f.PageNumber <= 0 {
		f.PageNumber = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 20
	}
	orders, total, err := s.Repo.ListOrders(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	for i := range orders {
		decorate(&orders[i], now)
	}
	return &OrderListOut{Items: orders, Total: total, PageNumber: f.PageNumber, PageSize: f.PageSize}, nil
}

// Preview evaluates a transition against the current state without writing.
func (s *OrderService) Preview(ctx context.Context, tenantID, orderID uint, target entity.OrderStatus) (*Evaluation, error) {
	o, err := s.Repo.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	ev := Evaluate(o, target)
	return &ev, nil
}

// ----- Transitions -----

// ChangeStatus validates and applies an order transition with its cascade.
// A non-empty cascade needs confirm; version conflicts are retried against
// fresh state up to Config.ConflictRetries times.
func (s *OrderService) ChangeStatus(ctx context.Context, tenantID, orderID uint, target entity.OrderStatus, confirm Confirmation) (*entity.Order, error) {
	accepted := confirm.ItemIDs
	var from entity.OrderStatus
	var applied Cascade
	noop := false

	updated, err := s.withRetry(ctx, "order_status", orderID, func(attempt int) (*entity.Order, error) {
		o, err := s.Repo.GetOrder(ctx, tenantID, orderID)
		if err != nil {
			return nil, err
		}
		ev := Evaluate(o, target)
		if !ev.Allowed {
			metrics.OrderTransitions.WithLabelValues(string(target), "rejected").Inc()
			return nil, ev.Err()
		}
		if ev.NoOp {
			noop = true
			return o, nil
		}
		if !ev.Cascade.Empty() {
			if !confirm.Confirmed {
				metrics.OrderTransitions.WithLabelValues(string(target), "confirm_required").Inc()
				return nil, &apperr.ConfirmationError{
					TargetItemStatus: string(ev.Cascade.TargetItemStatus),
					ItemIDs:          ev.Cascade.ItemIDs,
				}
			}
			if attempt == 0 && len(accepted) == 0 {
				accepted = ev.Cascade.ItemIDs
			}
			if !containsAll(accepted, ev.Cascade.ItemIDs) {
				metrics.OrderTransitions.WithLabelValues(string(target), "confirm_required").Inc()
				return nil, &apperr.ConfirmationError{
					TargetItemStatus: string(ev.Cascade.TargetItemStatus),
					ItemIDs:          ev.Cascade.ItemIDs,
				}
			}
		}
		from, applied = o.Status, ev.Cascade
		return s.Engine.Apply(ctx, o, target, ev.Cascade)
	})
	if err != nil {
		return nil, err
	}
	if noop {
		metrics.OrderTransitions.WithLabelValues(string(target), "noop").Inc()
		return decorate(updated, s.Now()), nil
	}

	metrics.OrderTransitions.WithLabelValues(string(target), "applied").Inc()
	log.WithFields(log.Fields{
		"order_id":      orderID,
		"from":          from,
		"to":            target,
		"cascade_to":    applied.TargetItemStatus,
		"cascade_items": len(applied.ItemIDs),
		"version":       updated.Version,
	}).Info("order status changed")
	s.publish(tenantID, entity.OrderUpdated, updated)
	return decorate(updated, s.Now()), nil
}

// ChangeItemStatus moves a single item, e.g. from the kitchen display.
func (s *OrderService) ChangeItemStatus(ctx context.Context, tenantID, orderID, itemID uint, target entity.ItemStatus) (*entity.Order, error) {
	var from entity.ItemStatus
	noop := false

	updated, err := s.withRetry(ctx, "item_status", orderID, func(int) (*entity.Order, error) {
		o, err := s.Repo.GetOrder(ctx, tenantID, orderID)
		if err != nil {
			return nil, err
		}
		it := o.Item(itemID)
		if it == nil {
			return nil, apperr.ErrNotFound
		}
		ev := EvaluateItem(o, it, target)
		if !ev.Allowed {
			return nil, ev.Err()
		}
		if ev.NoOp {
			noop = true
			return o, nil
		}
		from = it.Status
		return s.Engine.MoveItem(ctx, o, itemID, target)
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return decorate(updated, s.Now()), nil
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"item_id":  itemID,
		"from":     from,
		"to":       target,
		"version":  updated.Version,
	}).Info("order item status changed")
	s.publish(tenantID, entity.OrderItemUpdated, updated)
	return decorate(updated, s.Now()), nil
}

// Delete permanently removes an order. Routine cancellation goes through
// ChangeStatus with Cancelled instead.
func (s *OrderService) Delete(ctx context.Context, tenantID, orderID uint) error {
	if err := s.Repo.DeleteOrder(ctx, tenantID, orderID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"order_id": orderID, "restaurant_id": tenantID}).Warn("order hard-deleted")
	if s.Publisher != nil {
		s.Publisher.Publish(tenantID, entity.OrderDeleted, orderID, entity.EventHint{})
	}
	return nil
}

// ----- Helpers -----

func (s *OrderService) withRetry(ctx context.Context, op string, orderID uint, fn func(attempt int) (*entity.Order, error)) (*entity.Order, error) {
	for attempt := 0; ; attempt++ {
		o, err := fn(attempt)
		if !errors.Is(err, apperr.ErrConflictRetry) {
			return o, err
		}
		metrics.Conflicts.WithLabelValues(op).Inc()
		if attempt >= s.Config.ConflictRetries {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithFields(log.Fields{
			"order_id":  orderID,
			"operation": op,
			"attempt":   attempt + 1,
		}).Warn("version conflict, re-reading order")
	}
}

func (s *OrderService) publish(tenantID uint, t entity.OrderEventType, o *entity.Order) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(tenantID, t, o.ID, entity.EventHint{Version: o.Version, Status: o.Status})
}

func containsAll(set, ids []uint) bool {
	in := make(map[uint]bool, len(set))
	for _, id := range set {
		in[id] = true
	}
	for _, id := range ids {
		if !in[id] {
			return false
		}
	}
	return true
}
