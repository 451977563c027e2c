package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/service"
)

var occNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newOccupancyEnv(t *testing.T, capacity int) (*occupancyService, *fakeShowingRepo, *fakeReservationRepo, uint) {
	t.Helper()

	showings := newFakeShowingRepo()
	showing := &model.Showing{
		MovieID: 7,
		RoomID:  1,
		StartAt: occNow.Add(2 * time.Hour),
		EndAt:   occNow.Add(4 * time.Hour),
		Status:  model.ShowingScheduled,
	}
	require.NoError(t, showings.Create(showing))

	rooms := &fakeRoomRepo{rooms: map[uint]model.Room{
		1: {ID: 1, Name: "Room 1", Capacity: capacity},
	}}
	reservations := newFakeReservationRepo()

	return NewOccupancyService(showings, rooms, reservations), showings, reservations, showing.ID
}

func seatsOf(codes ...string) []model.ReservationSeat {
	out := make([]model.ReservationSeat, 0, len(codes))
	for _, code := range codes {
		out = append(out, model.ReservationSeat{SeatCode: code})
	}
	return out
}

func TestOccupancyCountsConfirmedAndLivePending(t *testing.T) {
	svc, _, reservations, showingID := newOccupancyEnv(t, 10)

	reservations.Create(&model.Reservation{
		PublicID:  "confirmed",
		ShowingID: showingID,
		Status:    model.ReservationConfirmed,
		Seats:     seatsOf("A1", "A2"),
	})
	reservations.Create(&model.Reservation{
		PublicID:      "pending-live",
		ShowingID:     showingID,
		Status:        model.ReservationPending,
		HoldExpiresAt: occNow.Add(5 * time.Minute),
		Seats:         seatsOf("B3"),
	})

	occ, err := svc.Occupancy(showingID, occNow)

	require.NoError(t, err)
	assert.Equal(t, 3, occ.Booked)
	assert.Equal(t, 10, occ.Capacity)
	assert.False(t, occ.IsFull)
}

func TestOccupancyExcludesCancelledAndExpired(t *testing.T) {
	svc, _, reservations, showingID := newOccupancyEnv(t, 10)

	reservations.Create(&model.Reservation{
		PublicID:  "cancelled",
		ShowingID: showingID,
		Status:    model.ReservationCancelled,
		Seats:     seatsOf("A1"),
	})
	reservations.Create(&model.Reservation{
		PublicID:  "refunded",
		ShowingID: showingID,
		Status:    model.ReservationRefunded,
		Seats:     seatsOf("A2"),
	})
	reservations.Create(&model.Reservation{
		PublicID:      "pending-expired",
		ShowingID:     showingID,
		Status:        model.ReservationPending,
		HoldExpiresAt: occNow.Add(-time.Minute),
		Seats:         seatsOf("B3"),
	})

	occ, err := svc.Occupancy(showingID, occNow)

	require.NoError(t, err)
	assert.Equal(t, 0, occ.Booked)
}

func TestRecomputeStoresFullFlagAtCapacity(t *testing.T) {
	svc, showings, reservations, showingID := newOccupancyEnv(t, 2)

	reservations.Create(&model.Reservation{
		PublicID:  "confirmed",
		ShowingID: showingID,
		Status:    model.ReservationConfirmed,
		Seats:     seatsOf("A1", "A2"),
	})

	occ, err := svc.Recompute(showingID, occNow)

	require.NoError(t, err)
	assert.True(t, occ.IsFull)
	showing, err := showings.GetByID(showingID)
	require.NoError(t, err)
	assert.True(t, showing.IsFull)
}

func TestRecomputeClearsFullFlagWhenSeatsFree(t *testing.T) {
	svc, showings, reservations, showingID := newOccupancyEnv(t, 2)
	require.NoError(t, showings.SetFull(showingID, true))

	reservations.Create(&model.Reservation{
		PublicID:  "confirmed",
		ShowingID: showingID,
		Status:    model.ReservationConfirmed,
		Seats:     seatsOf("A1"),
	})

	occ, err := svc.Recompute(showingID, occNow)

	require.NoError(t, err)
	assert.False(t, occ.IsFull)
	showing, err := showings.GetByID(showingID)
	require.NoError(t, err)
	assert.False(t, showing.IsFull)
}

func TestOccupancyUnknownShowing(t *testing.T) {
	svc, _, _, _ := newOccupancyEnv(t, 2)

	_, err := svc.Occupancy(999, occNow)

	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOccupancyPanicsWhenBookedExceedsCapacity(t *testing.T) {
	svc, _, reservations, showingID := newOccupancyEnv(t, 1)

	reservations.Create(&model.Reservation{
		PublicID:  "overbooked",
		ShowingID: showingID,
		Status:    model.ReservationConfirmed,
		Seats:     seatsOf("A1", "A2"),
	})

	assert.Panics(t, func() {
		_, _ = svc.Occupancy(showingID, occNow)
	})
}
