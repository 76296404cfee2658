package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

// ReservationFilter narrows GetReservations. Zero values are ignored.
type ReservationFilter struct {
	Date     string
	FromDate string
	ToDate   string
	Status   string
	TableID  uint
	Search   string
}

type ReservationRepo interface {
	Create(ctx context.Context, res *models.Reservation) error
	Get(ctx context.Context, id uint) (*models.Reservation, error)
	List(ctx context.Context, restaurantID uint, f ReservationFilter) ([]models.Reservation, error)
	// ListBlocking returns reservations of the date that hold a table.
	ListBlocking(ctx context.Context, restaurantID uint, date string) ([]models.Reservation, error)
	// ListUpcomingOnTable returns confirmed or arrived reservations booked on
	// the table from fromDate on.
	ListUpcomingOnTable(ctx context.Context, tableID uint, fromDate string) ([]models.Reservation, error)
	// ListAwaitingReminder returns confirmed reservations on the given dates
	// that have not been reminded yet, across restaurants.
	ListAwaitingReminder(ctx context.Context, dates []string) ([]models.Reservation, error)
	UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservationRepo) Get(ctx context.Context, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func (r *reservationRepo) List(ctx context.Context, restaurantID uint, f ReservationFilter) ([]models.Reservation, error) {
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.FromDate != "" {
		q = q.Where("date >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		q = q.Where("date <= ?", f.ToDate)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("customer_name LIKE ? OR customer_ref LIKE ? OR customer_phone LIKE ?", like, like, like)
	}

	var list []models.Reservation
	err := q.Order("date ASC").Order("time ASC").Order("id ASC").Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListBlocking(ctx context.Context, restaurantID uint, date string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND date = ? AND status IN ? AND table_id IS NOT NULL",
			restaurantID, date, models.BlockingStatuses).
		Order("time ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListUpcomingOnTable(ctx context.Context, tableID uint, fromDate string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND date >= ? AND status IN ?",
			tableID, fromDate, []string{models.ReservationConfirmed, models.ReservationArrived}).
		Order("date ASC").
		Order("time ASC").
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListAwaitingReminder(ctx context.Context, dates []string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND date IN ?", models.ReservationConfirmed, dates).
		Order("date ASC").
		Order("time ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) UpdateVersioned(ctx context.Context, id uint, expected uint64, fields map[string]interface{}) error {
	return updateVersioned(ctx, r.db, &models.Reservation{}, id, expected, fields)
}
