package repository

import (
	"context"
	"testing"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepository_ScopedByRestaurant(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&entity.Table{ID: 1, RestaurantID: 1, Number: "T1"}).Error)
	require.NoError(t, db.Create(&entity.Dish{ID: 1, RestaurantID: 1, Name: "Pho", Price: 50000, Available: true}).Error)
	require.NoError(t, db.Create(&entity.ModifierOption{ID: 1, RestaurantID: 2, Name: "Extra"}).Error)
	repo := NewCatalogRepository(db)

	tbl, err := repo.Table(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "T1", tbl.Number)

	d, err := repo.Dish(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), d.Price)

	_, err = repo.Dish(ctx, 2, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.ModifierOption(ctx, 1, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.Table(ctx, 1, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
