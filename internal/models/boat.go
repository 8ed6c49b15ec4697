package models

import (
	"time"

	"github.com/Eursukkul/boat-booking/internal/pricing"
)

// Boat is the local read model of a catalog boat. Rows are written by the
// catalog consumer only.
type Boat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	HourlyRate  int64     `gorm:"not null" json:"hourly_rate"`
	HalfDayRate int64     `gorm:"not null" json:"half_day_rate"`
	FullDayRate int64     `gorm:"not null" json:"full_day_rate"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (b *Boat) Rates() pricing.RateSchedule {
	return pricing.RateSchedule{
		HourlyRate:  b.HourlyRate,
		HalfDayRate: b.HalfDayRate,
		FullDayRate: b.FullDayRate,
	}
}
