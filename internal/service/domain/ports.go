package domain

import (
	"time"

	"github.com/tamthien006/vexemphim/internal/model"
)

// BookingLedger is the engine's atomic check-and-claim surface, backed by
// redis in production. Seat claims behave as a single test-and-set across
// the full requested seat set; promotion use commits cap check and
// increment in one step, at most once per reservation.
type BookingLedger interface {
	ClaimSeats(showingID uint, reservationID string, seatCodes []string, holdTTL time.Duration) (conflicts []string, err error)
	PersistSeats(showingID uint, reservationID string, seatCodes []string) error
	ReleaseSeats(showingID uint, reservationID string, seatCodes []string) error

	UsePromotion(code, reservationID string, maxUses int) error
	ReleasePromotionUse(code, reservationID string) error
}

// EventPublisher fans engine events out to external consumers. Publishing
// is fire-and-forget: implementations log failures, the engine never
// blocks on them.
type EventPublisher interface {
	OccupancyChanged(showingID uint, booked, capacity int, isFull bool)
	ReservationStateChanged(reservationID string, oldState, newState model.ReservationStatus)
	PromotionUsed(code, reservationID string)
}
