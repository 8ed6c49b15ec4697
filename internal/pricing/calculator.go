package pricing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidMode   = errors.New("invalid booking mode")
	ErrNegativeInput = errors.New("rates and duration must not be negative")
	ErrPriceOverflow = errors.New("price exceeds the representable range")
)

type Mode string

const (
	ModeHourly  Mode = "hourly"
	ModeHalfDay Mode = "half_day"
	ModeFullDay Mode = "full_day"
)

// Skipper surcharges in minor currency units, one per mode.
const (
	SkipperSurchargeHourly  int64 = 2500
	SkipperSurchargeHalfDay int64 = 10000
	SkipperSurchargeFullDay int64 = 18000
)

func (m Mode) Valid() bool {
	switch m {
	case ModeHourly, ModeHalfDay, ModeFullDay:
		return true
	}
	return false
}

// RateSchedule is the three-tier tariff of a boat, in minor currency units.
type RateSchedule struct {
	HourlyRate  int64
	HalfDayRate int64
	FullDayRate int64
}

type Quote struct {
	Mode        Mode
	Duration    int
	WithSkipper bool
}

// Calculate returns the total price for q under rates. Duration only affects
// the hourly mode.
func Calculate(rates RateSchedule, q Quote) (int64, error) {
	if rates.HourlyRate < 0 || rates.HalfDayRate < 0 || rates.FullDayRate < 0 || q.Duration < 0 {
		return 0, ErrNegativeInput
	}

	var price, surcharge int64
	switch q.Mode {
	case ModeHourly:
		if q.Duration > 0 && rates.HourlyRate > math.MaxInt64/int64(q.Duration) {
			return 0, ErrPriceOverflow
		}
		price = rates.HourlyRate * int64(q.Duration)
		surcharge = SkipperSurchargeHourly
	case ModeHalfDay:
		price = rates.HalfDayRate
		surcharge = SkipperSurchargeHalfDay
	case ModeFullDay:
		price = rates.FullDayRate
		surcharge = SkipperSurchargeFullDay
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, q.Mode)
	}

	if q.WithSkipper {
		if price > math.MaxInt64-surcharge {
			return 0, ErrPriceOverflow
		}
		price += surcharge
	}
	return price, nil
}
