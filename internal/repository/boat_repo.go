package repository

import (
	"context"
	"errors"

	"github.com/Eursukkul/boat-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BoatRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Boat, error)
	Upsert(ctx context.Context, boat *models.Boat) error
	Delete(ctx context.Context, id uint) error
}

type boatRepository struct {
	db           *gorm.DB
	reservations ReservationRepository
}

func NewBoatRepository(db *gorm.DB, reservations ReservationRepository) BoatRepository {
	return &boatRepository{db: db, reservations: reservations}
}

func (r *boatRepository) FindByID(ctx context.Context, id uint) (*models.Boat, error) {
	var boat models.Boat
	err := r.db.WithContext(ctx).First(&boat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &boat, nil
}

// Upsert inserts or refreshes a boat keyed by the catalog's id.
func (r *boatRepository) Upsert(ctx context.Context, boat *models.Boat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "hourly_rate", "half_day_rate", "full_day_rate", "updated_at"}),
	}).Create(boat).Error
}

// Delete removes the boat and clears it from reservations in one transaction.
// Reservations themselves are kept.
func (r *boatRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.reservations.ClearBoat(ctx, tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.Boat{}, id).Error
	})
}
