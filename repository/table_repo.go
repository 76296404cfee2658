package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

type TableRepo interface {
	Create(ctx context.Context, table *models.Table) error
	Get(ctx context.Context, id uint) (*models.Table, error)
	ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.Table, error)
	// ListCandidates returns seat-adequate tables that are not out of order,
	// tightest first, then by table number.
	ListCandidates(ctx context.Context, restaurantID uint, partySize int) ([]models.Table, error)
	MaxSeats(ctx context.Context, restaurantID uint) (int, error)
	UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error
}

type tableRepo struct{ db *gorm.DB }

func NewTableRepo(db *gorm.DB) TableRepo { return &tableRepo{db: db} }

func (r *tableRepo) Create(ctx context.Context, table *models.Table) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *tableRepo) Get(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *tableRepo) ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	var list []models.Table
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("number ASC").
		Find(&list).Error
	return list, err
}

func (r *tableRepo) ListCandidates(ctx context.Context, restaurantID uint, partySize int) ([]models.Table, error) {
	var list []models.Table
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND seats >= ? AND status <> ?", restaurantID, partySize, models.TableOutOfOrder).
		Order("seats ASC").
		Order("number ASC").
		Find(&list).Error
	return list, err
}

func (r *tableRepo) MaxSeats(ctx context.Context, restaurantID uint) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Table{}).
		Where("restaurant_id = ?", restaurantID).
		Select("COALESCE(MAX(seats), 0)").
		Row().
		Scan(&max)
	return max, err
}

func (r *tableRepo) UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error {
	return updateVersioned(ctx, r.db, &models.Table{}, id, expected, fields)
}
