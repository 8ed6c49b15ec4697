package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Eursukkul/boat-booking/internal/gateway"
	"github.com/Eursukkul/boat-booking/internal/metrics"
	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/pricing"
	"github.com/Eursukkul/boat-booking/internal/repository"
)

var (
	ErrValidation          = errors.New("invalid booking request")
	ErrAssetNotFound       = gateway.ErrAssetNotFound
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadySettled      = errors.New("reservation is already settled")
)

// Longest window each mode may price, in hours.
var maxDurationHours = map[pricing.Mode]int{
	pricing.ModeHourly:  24,
	pricing.ModeHalfDay: 12,
	pricing.ModeFullDay: 24,
}

type BookRequest struct {
	BoatID      uint
	PortID      uint
	RequesterID string
	StartAt     time.Time
	EndAt       time.Time
	Mode        pricing.Mode
	Duration    int
	WithSkipper bool
}

// BookResult is returned by BookBoat. Reservation is set whenever a row was
// persisted, including when the checkout session could not be created.
type BookResult struct {
	Reservation *models.Reservation
	RedirectURL string
}

type BookingService interface {
	BookBoat(ctx context.Context, req BookRequest) (*BookResult, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	RetryCheckout(ctx context.Context, id string) (*BookResult, error)
}

type bookingService struct {
	reservationRepo repository.ReservationRepository
	boatRepo        repository.BoatRepository
	sessions        gateway.SessionRequester
	metrics         *metrics.Metrics
	currency        string
}

func NewBookingService(reservationRepo repository.ReservationRepository, boatRepo repository.BoatRepository, sessions gateway.SessionRequester, m *metrics.Metrics, currency string) BookingService {
	if currency == "" {
		currency = "eur"
	}
	return &bookingService{
		reservationRepo: reservationRepo,
		boatRepo:        boatRepo,
		sessions:        sessions,
		metrics:         m,
		currency:        strings.ToLower(currency),
	}
}

func (r BookRequest) Validate() error {
	switch {
	case r.BoatID == 0:
		return fmt.Errorf("%w: boat_id is required", ErrValidation)
	case r.PortID == 0:
		return fmt.Errorf("%w: port_id is required", ErrValidation)
	case strings.TrimSpace(r.RequesterID) == "":
		return fmt.Errorf("%w: requester is required", ErrValidation)
	case r.StartAt.IsZero() || r.EndAt.IsZero():
		return fmt.Errorf("%w: start_at and end_at are required", ErrValidation)
	case !r.EndAt.After(r.StartAt):
		return fmt.Errorf("%w: end_at must be after start_at", ErrValidation)
	case r.Mode == "":
		return fmt.Errorf("%w: mode is required", ErrValidation)
	case r.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	// The window is what is held, the duration is what is priced.
	if limit, ok := maxDurationHours[r.Mode]; ok && r.Duration > limit {
		return fmt.Errorf("%w: %s duration is at most %d hours", ErrValidation, r.Mode, limit)
	}
	if window := r.EndAt.Sub(r.StartAt); window != time.Duration(r.Duration)*time.Hour {
		return fmt.Errorf("%w: window %s does not match duration of %d hours", ErrValidation, window, r.Duration)
	}
	return nil
}

func (s *bookingService) BookBoat(ctx context.Context, req BookRequest) (*BookResult, error) {
	if err := req.Validate(); err != nil {
		s.metrics.Booking("invalid")
		return nil, err
	}

	// 1. Resolve the rate schedule
	boat, err := s.boatRepo.FindByID(ctx, req.BoatID)
	if errors.Is(err, repository.ErrBoatNotFound) {
		s.metrics.Booking("boat_not_found")
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load boat %d: %w", req.BoatID, err)
	}

	// 2. Price is computed once and frozen on the reservation
	price, err := pricing.Calculate(boat.Rates(), pricing.Quote{
		Mode:        req.Mode,
		Duration:    req.Duration,
		WithSkipper: req.WithSkipper,
	})
	if err != nil {
		s.metrics.Booking("invalid")
		return nil, err
	}

	// 3. Persist PENDING before contacting the gateway so the id exists
	//    by the time a confirmation can arrive
	boatID, portID, requester := req.BoatID, req.PortID, strings.TrimSpace(req.RequesterID)
	reservation := &models.Reservation{
		BoatID:      &boatID,
		PortID:      &portID,
		RequesterID: &requester,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Mode:        req.Mode,
		Duration:    req.Duration,
		WithSkipper: req.WithSkipper,
		TotalPrice:  price,
		Currency:    s.currency,
	}
	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	// 4. Hand off to the gateway; a failure leaves the reservation PENDING
	result := &BookResult{Reservation: reservation}
	session, err := s.sessions.RequestSession(ctx, reservation)
	if err != nil {
		s.gatewayFailed(reservation.ID, err)
		s.metrics.Booking("gateway_failed")
		return result, err
	}

	s.metrics.Booking("created")
	result.RedirectURL = session.URL
	return result, nil
}

func (s *bookingService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, ErrReservationNotFound
	}
	return reservation, err
}

// RetryCheckout opens a new session for a reservation whose earlier checkout
// failed or was abandoned. The stored price is reused as is.
func (s *bookingService) RetryCheckout(ctx context.Context, id string) (*BookResult, error) {
	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Settled {
		return nil, ErrAlreadySettled
	}

	result := &BookResult{Reservation: reservation}
	session, err := s.sessions.RequestSession(ctx, reservation)
	if err != nil {
		s.gatewayFailed(reservation.ID, err)
		return result, err
	}
	result.RedirectURL = session.URL
	return result, nil
}

func (s *bookingService) gatewayFailed(reservationID string, err error) {
	reason := "other"
	switch {
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		reason = "unavailable"
	case errors.Is(err, gateway.ErrAssetNotFound):
		reason = "boat_not_found"
	case errors.Is(err, gateway.ErrSessionRejected):
		reason = "rejected"
	}
	s.metrics.GatewayError(reason)
	log.Printf("[Booking] checkout session for reservation %s failed: %v", reservationID, err)
}
