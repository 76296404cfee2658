package services

import (
	"context"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

// ListNotifications returns staff alerts, newest first.
func (e *Engine) ListNotifications(ctx context.Context, restaurantID uint, unreadOnly bool) ([]models.Notification, error) {
	var list []models.Notification
	err := e.read(ctx, "list notifications", func(ctx context.Context) error {
		var err error
		list, err = e.repo.Notifications.ListByRestaurant(ctx, restaurantID, unreadOnly)
		return err
	})
	if list == nil {
		list = []models.Notification{}
	}
	return list, err
}

func (e *Engine) MarkNotificationRead(ctx context.Context, id uint) error {
	return e.read(ctx, "mark notification read", func(ctx context.Context) error {
		return e.repo.Notifications.MarkRead(ctx, id, e.clock())
	})
}
