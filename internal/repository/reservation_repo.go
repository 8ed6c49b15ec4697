package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettleOutcome is the non-error result of MarkSettled.
type SettleOutcome int

const (
	// SettleApplied means this call flipped settled from false to true.
	SettleApplied SettleOutcome = iota + 1
	// SettleAlreadySettled means an earlier call won; nothing was written.
	SettleAlreadySettled
)

func (o SettleOutcome) String() string {
	switch o {
	case SettleApplied:
		return "applied"
	case SettleAlreadySettled:
		return "already_settled"
	}
	return "unknown"
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	MarkSettled(ctx context.Context, id string, paymentRef string) (SettleOutcome, error)
	ClearBoat(ctx context.Context, tx *gorm.DB, boatID uint) error
}

type reservationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db, now: time.Now}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	reservation.Settled = false
	reservation.SettledAt = nil
	reservation.PaymentRef = nil
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *reservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// MarkSettled flips settled with a conditional update so that concurrent
// callers on the same id see exactly one SettleApplied. The row is the lock;
// nothing is held across ids.
func (r *reservationRepository) MarkSettled(ctx context.Context, id string, paymentRef string) (SettleOutcome, error) {
	updates := map[string]any{
		"settled":    true,
		"settled_at": r.now().UTC(),
	}
	if paymentRef != "" {
		updates["payment_ref"] = paymentRef
	}

	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND settled = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("mark settled %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return SettleApplied, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("probe reservation %s: %w", id, err)
	}
	if count == 0 {
		return 0, ErrReservationNotFound
	}
	return SettleAlreadySettled, nil
}

// ClearBoat drops the weak boat reference from every reservation of boatID.
func (r *reservationRepository) ClearBoat(ctx context.Context, tx *gorm.DB, boatID uint) error {
	return tx.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("boat_id = ?", boatID).
		Update("boat_id", gorm.Expr("NULL")).Error
}
