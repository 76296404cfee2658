package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

type CustomerRepo interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByRef(ctx context.Context, ref string) (*models.Customer, error)
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) CustomerRepo { return &customerRepo{db: db} }

func (r *customerRepo) Create(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepo) GetByRef(ctx context.Context, ref string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
