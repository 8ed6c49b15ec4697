package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/repository"
)

const reservationPlaceholder = "{RESERVATION_ID}"

// SessionRequester turns a persisted reservation into a hosted checkout
// session. The amount is always the reservation's frozen price.
type SessionRequester interface {
	RequestSession(ctx context.Context, reservation *models.Reservation) (*Session, error)
}

type sessionRequester struct {
	client     Client
	boats      repository.BoatRepository
	successURL string
	cancelURL  string
}

func NewSessionRequester(client Client, boats repository.BoatRepository, successURL, cancelURL string) SessionRequester {
	return &sessionRequester{
		client:     client,
		boats:      boats,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *sessionRequester) RequestSession(ctx context.Context, reservation *models.Reservation) (*Session, error) {
	if reservation.BoatID == nil {
		return nil, ErrAssetNotFound
	}
	boat, err := s.boats.FindByID(ctx, *reservation.BoatID)
	if errors.Is(err, repository.ErrBoatNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.client.CreateCheckoutSession(ctx, &CheckoutSessionRequest{
		ReservationID: reservation.ID,
		BoatID:        boat.ID,
		ProductName:   boat.Name,
		Amount:        reservation.TotalPrice,
		Currency:      reservation.Currency,
		SuccessURL:    strings.ReplaceAll(s.successURL, reservationPlaceholder, reservation.ID),
		CancelURL:     strings.ReplaceAll(s.cancelURL, reservationPlaceholder, reservation.ID),
	})
}
