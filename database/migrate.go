package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// Models lists every persisted type in migration order.
var Models = []interface{}{
	&models.Customer{},
	&models.Table{},
	&models.Reservation{},
	&models.WaitlistEntry{},
	&models.TableStatusLog{},
	&models.Notification{},
}

// requiredIndexes back the invariants the engine relies on.
var requiredIndexes = []struct {
	model interface{}
	name  string
}{
	{&models.Table{}, "idx_tables_restaurant_number"},
	{&models.Reservation{}, "idx_reservations_restaurant_date"},
	{&models.WaitlistEntry{}, "idx_waitlist_rank"},
}

// Migrate creates or updates the schema and verifies the indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, idx := range requiredIndexes {
		if !db.Migrator().HasIndex(idx.model, idx.name) {
			if err := db.Migrator().CreateIndex(idx.model, idx.name); err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		utils.Logger().Debugf("Index verified: %s", idx.name)
	}

	utils.Logger().Info("AutoMigrate completed.")
	return nil
}
