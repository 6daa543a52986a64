package entity

type ModifierOption struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RestaurantID uint   `gorm:"index;not null" json:"restaurantId"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
}
