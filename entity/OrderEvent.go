package entity

import (
	"time"
)

type OrderEventType string

const (
	OrderCreated     OrderEventType = "OrderCreated"
	OrderUpdated     OrderEventType = "OrderUpdated"
	OrderItemUpdated OrderEventType = "OrderItemUpdated"
	OrderDeleted     OrderEventType = "OrderDeleted"
)

// OrderEvent is a change notification on a tenant's order stream. It is a
// hint only: receivers re-fetch the order by ID.
type OrderEvent struct {
	ID         string         `json:"eventId"`
	Type       OrderEventType `json:"type"`
	TenantID   uint           `json:"tenantId"`
	OrderID    uint           `json:"orderId"`
	Version    int64          `json:"version,omitempty"`
	Status     OrderStatus    `json:"status,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`

	// instance that first published the event, set by the relay
	Origin string `json:"origin,omitempty"`
}

// EventHint is the optional payload attached to a published event.
type EventHint struct {
	Version int64
	Status  OrderStatus
}
