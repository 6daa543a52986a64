package repository

import (
	"context"
	"errors"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"

	"gorm.io/gorm"
)

type StaffRepository struct {
	DB *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{DB: db}
}

func (r *StaffRepository) FindByID(ctx context.Context, restaurantID, staffID uint) (*entity.Staff, error) {
	var s entity.Staff
	err := r.DB.WithContext(ctx).Where("id = ? AND restaurant_id = ?", staffID, restaurantID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("find staff", err)
	}
	return &s, nil
}

// CountByName is used by the seeder to stay idempotent.
func (r *StaffRepository) CountByName(ctx context.Context, restaurantID uint, name string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&entity.Staff{}).
		Where("restaurant_id = ? AND name = ?", restaurantID, name).
		Count(&count).Error
	return count, apperr.Storage("count staff", err)
}

func (r *StaffRepository) Create(ctx context.Context, s *entity.Staff) error {
	return apperr.Storage("create staff", r.DB.WithContext(ctx).Create(s).Error)
}
