package repository

import (
	"context"
	"errors"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"

	"gorm.io/gorm"
)

// CatalogRepository reads tables, dishes and modifier options from the local
// database. Order code treats all three as read-only reference data.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) Table(ctx context.Context, restaurantID, tableID uint) (*entity.Table, error) {
	var t entity.Table
	if err := r.first(ctx, &t, restaurantID, tableID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *CatalogRepository) Dish(ctx context.Context, restaurantID, dishID uint) (*entity.Dish, error) {
	var d entity.Dish
	if err := r.first(ctx, &d, restaurantID, dishID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *CatalogRepository) ModifierOption(ctx context.Context, restaurantID, optionID uint) (*entity.ModifierOption, error) {
	var m entity.ModifierOption
	if err := r.first(ctx, &m, restaurantID, optionID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CatalogRepository) first(ctx context.Context, dst any, restaurantID, id uint) error {
	err := r.DB.WithContext(ctx).Where("id = ? AND restaurant_id = ?", id, restaurantID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return apperr.Storage("catalog lookup", err)
}
