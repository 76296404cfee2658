package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

type WaitlistRepo interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	Get(ctx context.Context, id uint) (*models.WaitlistEntry, error)
	// ListWaiting returns waiting entries in rank order.
	ListWaiting(ctx context.Context, restaurantID uint) ([]models.WaitlistEntry, error)
	// ListEnqueuedBetween returns every entry enqueued in [from, to).
	ListEnqueuedBetween(ctx context.Context, restaurantID uint, from, to time.Time) ([]models.WaitlistEntry, error)
	UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error
}

type waitlistRepo struct{ db *gorm.DB }

func NewWaitlistRepo(db *gorm.DB) WaitlistRepo { return &waitlistRepo{db: db} }

func (r *waitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *waitlistRepo) Get(ctx context.Context, id uint) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *waitlistRepo) ListWaiting(ctx context.Context, restaurantID uint) ([]models.WaitlistEntry, error) {
	var list []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND status = ?", restaurantID, models.WaitlistWaiting).
		Order("priority DESC").
		Order("enqueued_at ASC").
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *waitlistRepo) ListEnqueuedBetween(ctx context.Context, restaurantID uint, from, to time.Time) ([]models.WaitlistEntry, error) {
	var list []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND enqueued_at >= ? AND enqueued_at < ?", restaurantID, from, to).
		Order("enqueued_at ASC").
		Find(&list).Error
	return list, err
}

func (r *waitlistRepo) UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error {
	return updateVersioned(ctx, r.db, &models.WaitlistEntry{}, id, expected, fields)
}
