package entity

import (
	"time"
)

type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RestaurantID uint        `gorm:"index;not null" json:"restaurantId"`
	TableID      uint        `gorm:"index;not null" json:"tableId"`
	Status       OrderStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// bumped by every committed write to the order or its items
	Version int64 `gorm:"not null;default:1" json:"version"`

	PrepTimeMinutes int        `gorm:"not null" json:"prepTimeMinutes"`
	CompletedAt     *time.Time `json:"completedAt"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	// derived on read
	TotalAmount    int64 `gorm:"-" json:"totalAmount"`
	Overdue        bool  `gorm:"-" json:"overdue"`
	OverdueMinutes int   `gorm:"-" json:"overdueMinutes,omitempty"`
}

// Recalculate refreshes TotalAmount from the current items.
func (o *Order) Recalculate() {
	var total int64
	for _, it := range o.Items {
		if it.Status == ItemCancelled {
			continue
		}
		total += it.LineTotal()
	}
	o.TotalAmount = total
}

func (o *Order) Item(id uint) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}
