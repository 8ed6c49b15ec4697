package dto

import (
	"time"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/pricing"
)

type BookingResponse struct {
	ReservationID string `json:"reservation_id"`
	RedirectURL   string `json:"redirect_url"`
}

// CheckoutFailedResponse is returned when the reservation was stored but no
// checkout session could be opened. The id can be retried.
type CheckoutFailedResponse struct {
	Message       string `json:"message"`
	ReservationID string `json:"reservation_id"`
}

type ReservationResponse struct {
	ID          string                   `json:"id"`
	BoatID      *uint                    `json:"boat_id"`
	PortID      *uint                    `json:"port_id"`
	RequesterID *string                  `json:"requester_id,omitempty"`
	StartAt     time.Time                `json:"start_at"`
	EndAt       time.Time                `json:"end_at"`
	Mode        pricing.Mode             `json:"mode"`
	Duration    int                      `json:"duration"`
	WithSkipper bool                     `json:"with_skipper"`
	TotalPrice  int64                    `json:"total_price"`
	Currency    string                   `json:"currency"`
	Status      models.ReservationStatus `json:"status"`
	SettledAt   *time.Time               `json:"settled_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToReservationResponse(r *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		BoatID:      r.BoatID,
		PortID:      r.PortID,
		RequesterID: r.RequesterID,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		Mode:        r.Mode,
		Duration:    r.Duration,
		WithSkipper: r.WithSkipper,
		TotalPrice:  r.TotalPrice,
		Currency:    r.Currency,
		Status:      r.Status(),
		SettledAt:   r.SettledAt,
		CreatedAt:   r.CreatedAt,
	}
}
