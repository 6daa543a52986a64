package services

import (
	"context"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
)

// Catalog is the read-only reference data the order core consumes: tables,
// dishes and modifier options. Lookups of unknown IDs return apperr.ErrNotFound.
type Catalog interface {
	Table(ctx context.Context, restaurantID, tableID uint) (*entity.Table, error)
	Dish(ctx context.Context, restaurantID, dishID uint) (*entity.Dish, error)
	ModifierOption(ctx context.Context, restaurantID, optionID uint) (*entity.ModifierOption, error)
}

// EventPublisher receives change notifications after a write commits. It must
// not block on delivery.
type EventPublisher interface {
	Publish(tenantID uint, eventType entity.OrderEventType, orderID uint, hint entity.EventHint)
}
