package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

type NotificationRepo interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRestaurant(ctx context.Context, restaurantID uint, unreadOnly bool) ([]models.Notification, error)
	ExistsForWaitlistEntry(ctx context.Context, entryID uint, kind string) (bool, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
}

type notificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) NotificationRepo { return &notificationRepo{db: db} }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByRestaurant(ctx context.Context, restaurantID uint, unreadOnly bool) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var list []models.Notification
	err := q.Order("id DESC").Find(&list).Error
	return list, err
}

func (r *notificationRepo) ExistsForWaitlistEntry(ctx context.Context, entryID uint, kind string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("waitlist_entry_id = ? AND kind = ?", entryID, kind).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
