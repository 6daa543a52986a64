package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testRestaurant uint = 1

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.Staff{}, &entity.Order{}, &entity.OrderItem{}, &entity.OrderItemModifier{}))
	return db
}

func newTestRepo(t *testing.T) *repository.OrderRepository {
	return repository.NewOrderRepository(newTestDB(t))
}

// seedOrder stores an order of testRestaurant with one item per status given.
func seedOrder(t *testing.T, repo *repository.OrderRepository, status entity.OrderStatus, items ...entity.ItemStatus) *entity.Order {
	t.Helper()
	o := &entity.Order{
		CreatedAt:       t0,
		RestaurantID:    testRestaurant,
		TableID:         3,
		Status:          status,
		PrepTimeMinutes: 15,
	}
	for i, st := range items {
		o.Items = append(o.Items, entity.OrderItem{
			DishID:    uint(i + 1),
			DishName:  "dish",
			UnitPrice: 10000,
			Quantity:  1,
			Status:    st,
		})
	}
	require.NoError(t, repo.CreateOrder(context.Background(), o))

	got, err := repo.GetOrder(context.Background(), testRestaurant, o.ID)
	require.NoError(t, err)
	return got
}

func itemStatuses(o *entity.Order) []entity.ItemStatus {
	out := make([]entity.ItemStatus, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, it.Status)
	}
	return out
}

type fakeCatalog struct {
	tables  map[uint]entity.Table
	dishes  map[uint]entity.Dish
	options map[uint]entity.ModifierOption
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		tables: map[uint]entity.Table{
			3: {ID: 3, RestaurantID: testRestaurant, Number: "T3"},
		},
		dishes: map[uint]entity.Dish{
			1: {ID: 1, RestaurantID: testRestaurant, Name: "Pho", Price: 50000, PrepTimeMinutes: 12, Available: true},
			2: {ID: 2, RestaurantID: testRestaurant, Name: "Bun cha", Price: 45000, PrepTimeMinutes: 20, Available: true},
			3: {ID: 3, RestaurantID: testRestaurant, Name: "Soup of the day", Price: 30000, Available: false},
			4: {ID: 4, RestaurantID: testRestaurant, Name: "Tea", Price: 10000},
		},
		options: map[uint]entity.ModifierOption{
			7: {ID: 7, RestaurantID: testRestaurant, Name: "Extra beef", Price: 15000},
		},
	}
}

func (c *fakeCatalog) Table(_ context.Context, rid, id uint) (*entity.Table, error) {
	if t, ok := c.tables[id]; ok && t.RestaurantID == rid {
		return &t, nil
	}
	return nil, apperr.ErrNotFound
}

func (c *fakeCatalog) Dish(_ context.Context, rid, id uint) (*entity.Dish, error) {
	if d, ok := c.dishes[id]; ok && d.RestaurantID == rid {
		return &d, nil
	}
	return nil, apperr.ErrNotFound
}

func (c *fakeCatalog) ModifierOption(_ context.Context, rid, id uint) (*entity.ModifierOption, error) {
	if m, ok := c.options[id]; ok && m.RestaurantID == rid {
		return &m, nil
	}
	return nil, apperr.ErrNotFound
}

type published struct {
	TenantID uint
	Type     entity.OrderEventType
	OrderID  uint
	Hint     entity.EventHint
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(tenantID uint, t entity.OrderEventType, orderID uint, hint entity.EventHint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{tenantID, t, orderID, hint})
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}
