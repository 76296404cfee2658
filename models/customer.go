package models

import (
	"time"
)

// Customer is the local projection of the customer directory.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Ref       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"ref"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	VIP       bool      `gorm:"not null;default:false" json:"vip"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
