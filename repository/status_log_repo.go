package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

type StatusLogRepo interface {
	Create(ctx context.Context, entry *models.TableStatusLog) error
	ListByTable(ctx context.Context, tableID uint, limit int) ([]models.TableStatusLog, error)
}

type statusLogRepo struct{ db *gorm.DB }

func NewStatusLogRepo(db *gorm.DB) StatusLogRepo { return &statusLogRepo{db: db} }

func (r *statusLogRepo) Create(ctx context.Context, entry *models.TableStatusLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *statusLogRepo) ListByTable(ctx context.Context, tableID uint, limit int) ([]models.TableStatusLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.TableStatusLog
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
