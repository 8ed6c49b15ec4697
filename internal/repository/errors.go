package repository

import "errors"

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrBoatNotFound        = errors.New("boat not found")
)
