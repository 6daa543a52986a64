package entity

type OrderItemModifier struct {
	ID          uint `gorm:"primaryKey" json:"-"`
	OrderItemID uint `gorm:"index;not null" json:"-"`

	OptionID   uint   `json:"optionId"`
	OptionName string `json:"optionName"`
	Price      int64  `json:"price"`
}
