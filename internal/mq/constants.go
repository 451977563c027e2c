package mq

// Queue names and message definitions

// delay queue scheduling the hold-expiry sweep for a reservation.
// A message sits in the delay queue for the hold duration, dead-letters
// into the expiry queue, and the sweep consumer reclaims the hold.
// Expiry is still enforced synchronously at every point of use; the sweep
// only does the physical cleanup.
const (
	HoldExpiryDelayQueue = "booking.hold.expiry.delay"
	HoldExpiryQueue      = "booking.hold.expiry.immediate"
	HoldExpiryExchange   = "booking.hold.expiry.exchange"
	HoldExpiryRoutingKey = "booking.hold.expiry"
)

type HoldExpiryMessage struct {
	ReservationID string `json:"reservation_id"`
}

// immediate queue carrying the external payment collaborator's terminal
// outcome back into the reservation state machine
const (
	PaymentOutcomeQueue = "payment.booking.outcome.immediate"
)

type PaymentOutcomeMessage struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"` // success, failed, refunded
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
}

const (
	PaymentOutcomeSuccess  = "success"
	PaymentOutcomeFailed   = "failed"
	PaymentOutcomeRefunded = "refunded"
)

// topic exchange fanning engine events out to external consumers; the
// surrounding system may log, broadcast or ignore them
const (
	EventExchange = "booking.events"

	OccupancyChangedKey        = "showing.occupancy.changed"
	ReservationStateChangedKey = "reservation.state.changed"
	PromotionUsedKey           = "promotion.used"
)

type OccupancyChangedEvent struct {
	ShowingID uint `json:"showing_id"`
	Booked    int  `json:"booked"`
	Capacity  int  `json:"capacity"`
	IsFull    bool `json:"is_full"`
}

type ReservationStateChangedEvent struct {
	ReservationID string `json:"reservation_id"`
	OldState      string `json:"old_state"`
	NewState      string `json:"new_state"`
}

type PromotionUsedEvent struct {
	Code          string `json:"code"`
	ReservationID string `json:"reservation_id"`
}
