package entity

import (
	"time"
)

type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	OrderID uint `gorm:"index;not null" json:"orderId"`

	// snapshot of the dish at the time it was ordered
	DishID    uint   `gorm:"not null" json:"dishId"`
	DishName  string `json:"dishName"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `gorm:"not null" json:"quantity"`

	Status ItemStatus `gorm:"type:varchar(16);not null;default:''" json:"status"`
	Note   string     `json:"note"`

	Modifiers []OrderItemModifier `gorm:"foreignKey:OrderItemID" json:"modifiers"`
}

// LineTotal is (unit price + modifier prices) × quantity.
func (it OrderItem) LineTotal() int64 {
	unit := it.UnitPrice
	for _, m := range it.Modifiers {
		unit += m.Price
	}
	return unit * int64(it.Quantity)
}
