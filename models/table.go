package models

import "time"

const (
	TableAvailable  = "AVAILABLE"
	TableReserved   = "RESERVED"
	TableOccupied   = "OCCUPIED"
	TableCleaning   = "CLEANING"
	TableOutOfOrder = "OUT_OF_ORDER"
)

// TableStatuses lists every valid table status.
var TableStatuses = []string{TableAvailable, TableReserved, TableOccupied, TableCleaning, TableOutOfOrder}

// Layout is floor-plan placement. It is informational only.
type Layout struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type Table struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RestaurantID uint   `gorm:"not null;uniqueIndex:idx_tables_restaurant_number" json:"restaurant_id"`
	Number       int    `gorm:"not null;uniqueIndex:idx_tables_restaurant_number" json:"number"`
	Seats        int    `gorm:"not null" json:"seats"`
	Section      string `gorm:"type:varchar(50)" json:"section"`
	Shape        string `gorm:"type:varchar(20);not null;default:'square'" json:"shape"`
	Status       string `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	Layout       Layout `gorm:"embedded;embeddedPrefix:layout_" json:"layout"`
	// CurrentReservationID is the holder while RESERVED and the occupant while OCCUPIED.
	CurrentReservationID *uint     `gorm:"index" json:"current_reservation_id"`
	Notes                string    `gorm:"type:text" json:"notes,omitempty"`
	Version              uint64    `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func IsTableStatus(s string) bool {
	for _, st := range TableStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Fits reports whether a party can sit at the table.
func (t Table) Fits(partySize int) bool {
	return t.Seats >= partySize
}
