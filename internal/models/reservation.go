package models

import (
	"time"

	"github.com/Eursukkul/boat-booking/internal/pricing"
)

// Reservation is a request to use a boat for a time window at a price fixed
// when the reservation was created. Only the settlement columns change after
// insert, and only once.
type Reservation struct {
	ID          string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	BoatID      *uint        `gorm:"index" json:"boat_id"`
	PortID      *uint        `json:"port_id"`
	RequesterID *string      `gorm:"type:varchar(64);index" json:"requester_id"`
	StartAt     time.Time    `gorm:"not null" json:"start_at"`
	EndAt       time.Time    `gorm:"not null" json:"end_at"`
	Mode        pricing.Mode `gorm:"type:varchar(16);not null" json:"mode"`
	Duration    int          `gorm:"not null" json:"duration"`
	WithSkipper bool         `gorm:"not null;default:false" json:"with_skipper"`
	TotalPrice  int64        `gorm:"not null" json:"total_price"`
	Currency    string       `gorm:"type:varchar(3);not null" json:"currency"`
	Settled     bool         `gorm:"not null;default:false;index" json:"settled"`
	SettledAt   *time.Time   `json:"settled_at,omitempty"`
	PaymentRef  *string      `gorm:"type:varchar(255)" json:"payment_ref,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (r *Reservation) Status() ReservationStatus {
	if r.Settled {
		return StatusSettled
	}
	return StatusPending
}

type ReservationStatus string

const (
	StatusPending ReservationStatus = "PENDING"
	StatusSettled ReservationStatus = "SETTLED"
)
