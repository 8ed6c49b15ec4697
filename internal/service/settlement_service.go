package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Eursukkul/boat-booking/internal/gateway"
	"github.com/Eursukkul/boat-booking/internal/metrics"
	"github.com/Eursukkul/boat-booking/internal/repository"
)

const RoutingReservationSettled = "reservation.settled"

const defaultWebhookTolerance = 5 * time.Minute

var (
	ErrWebhookSecretMissing = errors.New("webhook signing secret is not configured")
	ErrSignatureInvalid     = errors.New("webhook signature verification failed")
	ErrMalformedEvent       = errors.New("malformed webhook event")
	ErrMissingCorrelation   = errors.New("event carries no reservation id")
	ErrUnknownReservation   = errors.New("event references an unknown reservation")
)

// Result reports what HandleEvent did with an authenticated event.
type Result int

const (
	ResultSettled Result = iota + 1
	ResultDuplicate
	ResultIgnored
)

func (r Result) String() string {
	switch r {
	case ResultSettled:
		return "settled"
	case ResultDuplicate:
		return "duplicate"
	case ResultIgnored:
		return "ignored"
	}
	return "unknown"
}

// EventPublisher is satisfied by *rabbitmq.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type ReservationSettledEvent struct {
	ReservationID string    `json:"reservation_id"`
	BoatID        *uint     `json:"boat_id,omitempty"`
	TotalPrice    int64     `json:"total_price"`
	Currency      string    `json:"currency"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	SettledAt     time.Time `json:"settled_at"`
}

type SettlementService interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (Result, error)
}

type SettlementConfig struct {
	Secret    string
	Tolerance time.Duration
}

type settlementService struct {
	repo      repository.ReservationRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSettlementService refuses to build without a signing secret so that
// unauthenticated events can never reach the store.
func NewSettlementService(repo repository.ReservationRepository, publisher EventPublisher, m *metrics.Metrics, cfg SettlementConfig) (SettlementService, error) {
	if cfg.Secret == "" {
		return nil, ErrWebhookSecretMissing
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = defaultWebhookTolerance
	}
	return &settlementService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		secret:    []byte(cfg.Secret),
		tolerance: cfg.Tolerance,
		now:       time.Now,
	}, nil
}

func (s *settlementService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	result, err := s.handle(ctx, payload, signatureHeader)
	s.metrics.Webhook(outcomeLabel(result, err))
	return result, err
}

func (s *settlementService) handle(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	// 1. Authenticate the raw bytes before looking at anything inside them
	if err := gateway.VerifySignature(payload, signatureHeader, s.secret, s.tolerance, s.now()); err != nil {
		log.Printf("[Settlement] Rejected webhook: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	event, err := gateway.ParseEvent(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	// 2. Only completed payments settle; everything else is acknowledged
	if !event.PaymentCompleted() {
		log.Printf("[Settlement] Ignoring event %s (%s, kind=%s)", event.ID, event.Type, event.Kind())
		return ResultIgnored, nil
	}

	// 3. Correlate
	reservationID := event.ReservationID()
	if reservationID == "" {
		log.Printf("[Settlement] Event %s has no reservation_id metadata", event.ID)
		return 0, ErrMissingCorrelation
	}

	reservation, err := s.repo.FindByID(ctx, reservationID)
	if errors.Is(err, repository.ErrReservationNotFound) {
		log.Printf("[Settlement] Event %s references unknown reservation %s", event.ID, reservationID)
		return 0, fmt.Errorf("%w: %s", ErrUnknownReservation, reservationID)
	}
	if err != nil {
		return 0, fmt.Errorf("load reservation %s: %w", reservationID, err)
	}

	// 4. Atomic transition; losers of a race see AlreadySettled
	outcome, err := s.repo.MarkSettled(ctx, reservationID, event.Data.Object.ID)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownReservation, reservationID)
	}
	if err != nil {
		return 0, fmt.Errorf("settle reservation %s: %w", reservationID, err)
	}

	if outcome == repository.SettleAlreadySettled {
		log.Printf("[Settlement] Duplicate confirmation for reservation %s (event %s)", reservationID, event.ID)
		return ResultDuplicate, nil
	}

	log.Printf("[Settlement] Reservation %s settled by event %s", reservationID, event.ID)
	s.publishSettled(ctx, ReservationSettledEvent{
		ReservationID: reservation.ID,
		BoatID:        reservation.BoatID,
		TotalPrice:    reservation.TotalPrice,
		Currency:      reservation.Currency,
		PaymentRef:    event.Data.Object.ID,
		SettledAt:     s.now().UTC(),
	})
	return ResultSettled, nil
}

// publishSettled is best effort: the settlement is already committed.
func (s *settlementService) publishSettled(ctx context.Context, evt ReservationSettledEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, RoutingReservationSettled, evt); err != nil {
		log.Printf("[Settlement] Failed to publish %s for %s: %v", RoutingReservationSettled, evt.ReservationID, err)
	}
}

func outcomeLabel(result Result, err error) string {
	switch {
	case err == nil:
		return result.String()
	case errors.Is(err, ErrSignatureInvalid):
		return "invalid_signature"
	case errors.Is(err, ErrMalformedEvent):
		return "malformed"
	case errors.Is(err, ErrMissingCorrelation):
		return "missing_correlation"
	case errors.Is(err, ErrUnknownReservation):
		return "unknown_reservation"
	}
	return "error"
}
