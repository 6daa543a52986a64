package entity

import (
	"gorm.io/gorm"
)

// Staff roles carried in tokens.
const (
	RoleManager  = "manager"
	RoleWaiter   = "waiter"
	RoleKitchen  = "kitchen"
	RoleCustomer = "customer"
)

type Staff struct {
	gorm.Model
	RestaurantID uint   `gorm:"index;not null" json:"restaurantId"`
	Name         string `json:"name"`
	Role         string `gorm:"not null;default:waiter" json:"role"`
	PinHash      string `json:"-"`
}
