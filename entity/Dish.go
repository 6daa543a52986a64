package entity

// Dish is reference data owned by the menu service.
type Dish struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	RestaurantID    uint   `gorm:"index;not null" json:"restaurantId"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	PrepTimeMinutes int    `json:"prepTimeMinutes"`
	Available       bool   `gorm:"not null;default:true" json:"available"`
}
