package configs

import (
	"context"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/services"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const demoRestaurantID = 1

// SeedStaff creates one manager, waiter and kitchen account for the demo
// restaurant. Nothing is seeded without SEED_STAFF_PIN.
func SeedStaff(ctx context.Context, database *gorm.DB, auth *services.AuthService) error {
	pin := getEnv("SEED_STAFF_PIN", "")
	if pin == "" {
		log.Info("skip seeding staff: missing SEED_STAFF_PIN")
		return nil
	}

	repo := repository.NewStaffRepository(database)
	for _, s := range []struct{ name, role string }{
		{"Manager", entity.RoleManager},
		{"Waiter", entity.RoleWaiter},
		{"Kitchen", entity.RoleKitchen},
	} {
		n, err := repo.CountByName(ctx, demoRestaurantID, s.name)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		staff, err := auth.RegisterStaff(ctx, demoRestaurantID, s.name, s.role, pin)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"staff_id": staff.ID, "role": staff.Role}).Info("staff seeded")
	}
	return nil
}

// SeedCatalog fills tables, dishes and modifier options for the demo restaurant.
func SeedCatalog(database *gorm.DB) error {
	tables := []entity.Table{
		{ID: 1, RestaurantID: demoRestaurantID, Number: "T1", Location: "window"},
		{ID: 2, RestaurantID: demoRestaurantID, Number: "T2", Location: "window"},
		{ID: 3, RestaurantID: demoRestaurantID, Number: "T3", Location: "terrace"},
	}
	dishes := []entity.Dish{
		{ID: 1, RestaurantID: demoRestaurantID, Name: "Pho bo", Price: 65000, PrepTimeMinutes: 12, Available: true},
		{ID: 2, RestaurantID: demoRestaurantID, Name: "Bun cha", Price: 55000, PrepTimeMinutes: 15, Available: true},
		{ID: 3, RestaurantID: demoRestaurantID, Name: "Iced coffee", Price: 30000, PrepTimeMinutes: 3, Available: true},
	}
	options := []entity.ModifierOption{
		{ID: 1, RestaurantID: demoRestaurantID, Name: "Extra beef", Price: 20000},
		{ID: 2, RestaurantID: demoRestaurantID, Name: "Less ice", Price: 0},
	}

	return database.Transaction(func(tx *gorm.DB) error {
		for i := range tables {
			if err := tx.FirstOrCreate(&tables[i], entity.Table{ID: tables[i].ID}).Error; err != nil {
				return err
			}
		}
		for i := range dishes {
			if err := tx.FirstOrCreate(&dishes[i], entity.Dish{ID: dishes[i].ID}).Error; err != nil {
				return err
			}
		}
		for i := range options {
			if err := tx.FirstOrCreate(&options[i], entity.ModifierOption{ID: options[i].ID}).Error; err != nil {
				return err
			}
		}
		log.Info("catalog seeded")
		return nil
	})
}

func getEnv(key, fallback string) string {
	return source{}.str(key, fallback)
}
