// Package repository is the relational store behind the engine. Every
// mutation that participates in optimistic concurrency goes through an
// UpdateVersioned method, which only succeeds when the row still carries the
// version the caller read.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion is returned when a versioned update matched no row
	// because another writer committed first.
	ErrStaleVersion = errors.New("stale version")
)

type Repository struct {
	DB            *gorm.DB
	Tables        TableRepo
	Reservations  ReservationRepo
	Waitlist      WaitlistRepo
	Customers     CustomerRepo
	StatusLogs    StatusLogRepo
	Notifications NotificationRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		Tables:        NewTableRepo(db),
		Reservations:  NewReservationRepo(db),
		Waitlist:      NewWaitlistRepo(db),
		Customers:     NewCustomerRepo(db),
		StatusLogs:    NewStatusLogRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx runs fn with every repo bound to one transaction. Returning an error
// from fn rolls the transaction back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// updateVersioned bumps version and applies fields only if the row is still
// at expected.
func updateVersioned(ctx context.Context, db *gorm.DB, model interface{}, id uint, expected uint64, fields map[string]interface{}) error {
	set := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["version"] = gorm.Expr("version + 1")

	res := db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", id, expected).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}
