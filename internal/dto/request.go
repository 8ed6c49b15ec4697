package dto

import "time"

type CreateBookingRequest struct {
	BoatID      uint      `json:"boat_id"`
	PortID      uint      `json:"port_id"`
	RequesterID string    `json:"requester_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Mode        string    `json:"mode"`
	Duration    int       `json:"duration"`
	WithSkipper bool      `json:"with_skipper"`
}
