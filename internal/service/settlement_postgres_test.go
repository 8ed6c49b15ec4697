//go:build integration

package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/Eursukkul/boat-booking/internal/models"
	"github.com/Eursukkul/boat-booking/internal/repository"
	"github.com/Eursukkul/boat-booking/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "boat_booking_test"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	db.Exec("DELETE FROM reservations")
	db.Exec("DELETE FROM boats")
	t.Cleanup(func() {
		db.Exec("DELETE FROM reservations")
		db.Exec("DELETE FROM boats")
	})
	return db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// 50 redeliveries of one confirmation race against Postgres
// → exactly one settles, the rest are duplicates
func TestPostgres_ConcurrentSettlement(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	reservations := repository.NewReservationRepository(db)
	boats := repository.NewBoatRepository(db, reservations)
	require.NoError(t, boats.Upsert(ctx, aurora()))

	booking := NewBookingService(reservations, boats, sessionsReturning("https://pay.test/cs", nil), nil, "eur")
	result, err := booking.BookBoat(ctx, sampleRequest())
	require.NoError(t, err)
	id := result.Reservation.ID

	pub := &mockPublisher{}
	settlement := newSettlement(t, reservations, pub)
	payload := eventPayload(t, "checkout.session.completed", "paid", id)
	header := sign(payload)

	total := 50
	var wg sync.WaitGroup
	results := make(chan Result, total)
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			r, err := settlement.HandleEvent(ctx, payload, header)
			assert.NoError(t, err)
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	counts := map[Result]int{}
	for r := range results {
		counts[r]++
	}
	assert.Equal(t, 1, counts[ResultSettled])
	assert.Equal(t, total-1, counts[ResultDuplicate])
	assert.Equal(t, 1, pub.count())

	var stored models.Reservation
	require.NoError(t, db.First(&stored, "id = ?", id).Error)
	assert.True(t, stored.Settled)
	assert.Equal(t, int64(200), stored.TotalPrice)
}
