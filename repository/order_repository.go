package repository

import (
	"context"
	"errors"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"

	"gorm.io/gorm"
)

// OrderRepository is the authoritative store for orders and their items.
// Every write to an order aggregate is guarded by the order's version.
type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// ---------------- Orders ----------------

// CreateOrder inserts the order with its items and modifiers in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *entity.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	return apperr.Storage("create order", err)
}

// GetOrder loads one order of a restaurant with items (by id) and modifiers.
func (r *OrderRepository) GetOrder(ctx context.Context, restaurantID, orderID uint) (*entity.Order, error) {
	var o entity.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Modifiers").
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("get order", err)
	}
	return &o, nil
}

type OrderFilter struct {
	Status     entity.OrderStatus
	TableID    uint
	PageNumber int
	PageSize   int
	// BeforeID pages by cursor: only orders with a smaller id, PageNumber ignored.
	BeforeID uint
}

// ListOrders returns one page of a restaurant's orders, newest first. total
// counts every match of the filter regardless of the cursor.
func (r *OrderRepository) ListOrders(ctx context.Context, restaurantID uint, f OrderFilter) ([]entity.Order, int64, error) {
	if f.PageNumber <= 0 {
		f.PageNumber = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 20
	}
	offset := (f.PageNumber - 1) * f.PageSize

	q := r.DB.WithContext(ctx).Model(&entity.Order{}).Where("restaurant_id = ?", restaurantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("count orders", err)
	}

	page := q.Session(&gorm.Session{})
	if f.BeforeID != 0 {
		page = page.Where("id < ?", f.BeforeID)
		offset = 0
	}
	var out []entity.Order
	err := page.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Modifiers").
		Order("id DESC").Limit(f.PageSize).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, apperr.Storage("list orders", err)
	}
	return out, total, nil
}

// ListActiveOrders returns every order still waiting on the kitchen, without items.
func (r *OrderRepository) ListActiveOrders(ctx context.Context) ([]entity.Order, error) {
	var out []entity.Order
	err := r.DB.WithContext(ctx).
		Where("status IN ?", entity.ActiveWaitStatuses()).
		Order("id ASC").
		Find(&out).Error
	return out, apperr.Storage("list active orders", err)
}

// FindOpenOrderForTable returns the newest order of a table that still takes items.
func (r *OrderRepository) FindOpenOrderForTable(ctx context.Context, restaurantID, tableID uint) (*entity.Order, error) {
	var row struct{ ID uint }
	err := r.DB.WithContext(ctx).Model(&entity.Order{}).
		Select("id").
		Where("restaurant_id = ? AND table_id = ? AND status IN ?", restaurantID, tableID, entity.ActiveWaitStatuses()).
		Order("id DESC").Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, apperr.Storage("find open order", err)
	}
	if row.ID == 0 {
		return nil, apperr.ErrNotFound
	}
	return r.GetOrder(ctx, restaurantID, row.ID)
}

// ---------------- Guarded writes ----------------

// StatusWrite is one atomic change to an order aggregate: the order's status
// plus an optional set of items moved to one item status.
type StatusWrite struct {
	OrderID         uint
	ExpectedVersion int64
	OrderStatus     entity.OrderStatus
	CompletedAt     *time.Time

	ItemIDs    []uint
	ItemStatus entity.ItemStatus
}

// WriteStatus applies w in a single transaction. The order row is updated only
// if its version still equals ExpectedVersion; otherwise nothing is written and
// ErrConflictRetry is returned. Item rows that are missing or already cancelled
// abort the whole transaction the same way.
func (r *OrderRepository) WriteStatus(ctx context.Context, w StatusWrite) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":  w.OrderStatus,
			"version": gorm.Expr("version + 1"),
		}
		if w.CompletedAt != nil {
			updates["completed_at"] = *w.CompletedAt
		}
		if err := bumpVersion(tx, w.OrderID, w.ExpectedVersion, updates); err != nil {
			return err
		}

		if len(w.ItemIDs) == 0 {
			return nil
		}
		res := tx.Model(&entity.OrderItem{}).
			Where("order_id = ? AND id IN ? AND status <> ?", w.OrderID, w.ItemIDs, entity.ItemCancelled).
			Update("status", w.ItemStatus)
		if res.Error != nil {
			return apperr.Storage("write item status", res.Error)
		}
		if res.RowsAffected != int64(len(w.ItemIDs)) {
			return apperr.ErrCascadeIncomplete
		}
		return nil
	})
	return settle(err)
}

// AddItems appends unconfirmed items to an order under the version guard and
// raises the order's prep-time budget to prepTime if it is larger.
func (r *OrderRepository) AddItems(ctx context.Context, orderID uint, expectedVersion int64, items []entity.OrderItem, prepTime int) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"version":           gorm.Expr("version + 1"),
			"prep_time_minutes": gorm.Expr("CASE WHEN prep_time_minutes < ? THEN ? ELSE prep_time_minutes END", prepTime, prepTime),
		}
		if err := bumpVersion(tx, orderID, expectedVersion, updates); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = orderID
			items[i].Status = entity.ItemUnconfirmed
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperr.Storage("create order items", err)
		}
		return nil
	})
	return settle(err)
}

// DeleteOrder permanently removes an order, its items and their modifiers.
func (r *OrderRepository) DeleteOrder(ctx context.Context, restaurantID, orderID uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Order{}).Where("id = ? AND restaurant_id = ?", orderID, restaurantID).Count(&count).Error; err != nil {
			return apperr.Storage("find order", err)
		}
		if count == 0 {
			return apperr.ErrNotFound
		}
		itemIDs := tx.Model(&entity.OrderItem{}).Select("id").Where("order_id = ?", orderID)
		if err := tx.Where("order_item_id IN (?)", itemIDs).Delete(&entity.OrderItemModifier{}).Error; err != nil {
			return apperr.Storage("delete modifiers", err)
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&entity.OrderItem{}).Error; err != nil {
			return apperr.Storage("delete items", err)
		}
		if err := tx.Delete(&entity.Order{}, orderID).Error; err != nil {
			return apperr.Storage("delete order", err)
		}
		return nil
	})
	return err
}

// ---------------- Helpers ----------------

func bumpVersion(tx *gorm.DB, orderID uint, expected int64, updates map[string]any) error {
	res := tx.Model(&entity.Order{}).
		Where("id = ? AND version = ?", orderID, expected).
		Updates(updates)
	if res.Error != nil {
		return apperr.Storage("update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConflictRetry
	}
	return nil
}

// settle keeps ErrCascadeIncomplete inside the store.
func settle(err error) error {
	if errors.Is(err, apperr.ErrCascadeIncomplete) {
		return apperr.ErrConflictRetry
	}
	return err
}
