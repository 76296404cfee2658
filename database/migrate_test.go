package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	// second run is a no-op
	require.NoError(t, Migrate(db))

	for _, m := range Models {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasColumn(&models.Table{}, "layout_x"))
	assert.True(t, db.Migrator().HasColumn(&models.Reservation{}, "special_requests"))
}

func TestTableNumberUniquePerRestaurant(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_unique?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.Table{RestaurantID: 1, Number: 3, Seats: 4, Version: 1}).Error)
	assert.Error(t, db.Create(&models.Table{RestaurantID: 1, Number: 3, Seats: 2, Version: 1}).Error)
	assert.NoError(t, db.Create(&models.Table{RestaurantID: 2, Number: 3, Seats: 2, Version: 1}).Error)
}
