package entity

// Table is reference data owned by the floor-plan service.
type Table struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RestaurantID uint   `gorm:"index;not null" json:"restaurantId"`
	Number       string `json:"number"`
	Location     string `json:"location"`
}
