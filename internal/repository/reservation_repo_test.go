package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/pricing"
	"github.com/Eursukkul/boat-booking/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func uintPtr(v uint) *uint { return &v }

func newReservation(boatID uint) *models.Reservation {
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	requester := "user-1"
	return &models.Reservation{
		BoatID:      uintPtr(boatID),
		PortID:      uintPtr(3),
		RequesterID: &requester,
		StartAt:     start,
		EndAt:       start.Add(4 * time.Hour),
		Mode:        pricing.ModeHourly,
		Duration:    4,
		TotalPrice:  200,
		Currency:    "eur",
	}
}

func TestCreate_AssignsIDAndStartsUnsettled(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))
	res := newReservation(1)
	res.Settled = true

	require.NoError(t, repo.Create(context.Background(), res))

	assert.NotEmpty(t, res.ID)
	stored, err := repo.FindByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.False(t, stored.Settled)
	assert.Nil(t, stored.SettledAt)
	assert.Equal(t, int64(200), stored.TotalPrice)
	assert.Equal(t, models.StatusPending, stored.Status())
}

func TestFindByID_NotFound(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))

	res, err := repo.FindByID(context.Background(), uuid.NewString())

	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.Nil(t, res)
}

func TestMarkSettled_ThenAlreadySettled(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))
	ctx := context.Background()
	res := newReservation(1)
	require.NoError(t, repo.Create(ctx, res))

	first, err := repo.MarkSettled(ctx, res.ID, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, SettleApplied, first)

	second, err := repo.MarkSettled(ctx, res.ID, "cs_test_2")
	require.NoError(t, err)
	assert.Equal(t, SettleAlreadySettled, second)

	stored, err := repo.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, stored.Settled)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, "cs_test_1", *stored.PaymentRef, "losing call must not overwrite the payment ref")
	assert.NotNil(t, stored.SettledAt)
	assert.Equal(t, int64(200), stored.TotalPrice)
}

func TestMarkSettled_NotFound(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))

	outcome, err := repo.MarkSettled(context.Background(), uuid.NewString(), "")

	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.Zero(t, outcome)
}

// Calls are serialized by the single sqlite connection; this covers the
// Applied/AlreadySettled split under concurrent callers, not the database
// race. See the integration-tagged Postgres test in internal/service.
func TestMarkSettled_Concurrent(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))
	ctx := context.Background()
	res := newReservation(1)
	require.NoError(t, repo.Create(ctx, res))

	attempts := 20
	var wg sync.WaitGroup
	outcomes := make(chan SettleOutcome, attempts)
	errs := make(chan error, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			outcome, err := repo.MarkSettled(ctx, res.ID, "cs_race")
			if err != nil {
				errs <- err
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	var applied, already int
	for o := range outcomes {
		switch o {
		case SettleApplied:
			applied++
		case SettleAlreadySettled:
			already++
		}
	}
	assert.Equal(t, 1, applied, "exactly one caller settles")
	assert.Equal(t, attempts-1, already)
}

func TestMarkSettled_OtherReservationsUntouched(t *testing.T) {
	repo := NewReservationRepository(setupDB(t))
	ctx := context.Background()
	a := newReservation(1)
	b := newReservation(1)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	_, err := repo.MarkSettled(ctx, a.ID, "")
	require.NoError(t, err)

	other, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, other.Settled)
}

func TestBoatDelete_ClearsReferenceKeepsReservation(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	reservations := NewReservationRepository(db)
	boats := NewBoatRepository(db, reservations)

	require.NoError(t, boats.Upsert(ctx, &models.Boat{ID: 7, Name: "Aurora", HourlyRate: 50, HalfDayRate: 300, FullDayRate: 500}))
	res := newReservation(7)
	require.NoError(t, reservations.Create(ctx, res))

	require.NoError(t, boats.Delete(ctx, 7))

	_, err := boats.FindByID(ctx, 7)
	assert.ErrorIs(t, err, ErrBoatNotFound)

	stored, err := reservations.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.BoatID)
	assert.Equal(t, int64(200), stored.TotalPrice)
}

func TestBoatUpsert_RefreshesRates(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	boats := NewBoatRepository(db, NewReservationRepository(db))

	require.NoError(t, boats.Upsert(ctx, &models.Boat{ID: 2, Name: "Gull", HourlyRate: 40, HalfDayRate: 200, FullDayRate: 350}))
	require.NoError(t, boats.Upsert(ctx, &models.Boat{ID: 2, Name: "Gull II", HourlyRate: 45, HalfDayRate: 220, FullDayRate: 380}))

	boat, err := boats.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Gull II", boat.Name)
	assert.Equal(t, int64(45), boat.HourlyRate)
	assert.Equal(t, int64(380), boat.Rates().FullDayRate)
}
