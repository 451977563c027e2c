package model

import (
	"time"
)

type Room struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:64;not null"`
	Capacity int    `gorm:"not null"`
}

type Seat struct {
	ID          uint     `gorm:"primaryKey"`
	RoomID      uint     `gorm:"not null;index:idx_room_code,unique"`
	Code        string   `gorm:"size:8;not null;index:idx_room_code,unique"`
	Type        SeatType `gorm:"type:varchar(16);not null"`
	Maintenance bool     `gorm:"not null;default:false"`
}

type SeatType string

const (
	SeatStandard SeatType = "standard"
	SeatVIP      SeatType = "vip"
)

type Movie struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"size:100;not null;uniqueIndex"`
	Genre           string `gorm:"size:32;not null"`
	DurationMinutes int    `gorm:"not null"`
}

type Showing struct {
	ID            uint          `gorm:"primaryKey"`
	MovieID       uint          `gorm:"not null;index"`
	RoomID        uint          `gorm:"not null;index"`
	StartAt       time.Time     `gorm:"not null"`
	EndAt         time.Time     `gorm:"not null"`
	PriceStandard int64         `gorm:"not null"`
	PriceVIP      int64         `gorm:"not null"`
	Status        ShowingStatus `gorm:"type:varchar(16);not null"`
	IsFull        bool          `gorm:"not null;default:false"`
}

type ShowingStatus string

const (
	ShowingScheduled ShowingStatus = "scheduled"
	ShowingCancelled ShowingStatus = "cancelled"
	ShowingCompleted ShowingStatus = "completed"
)

// SeatPrice resolves the showing's price table for a seat type.
func (s *Showing) SeatPrice(t SeatType) int64 {
	if t == SeatVIP {
		return s.PriceVIP
	}
	return s.PriceStandard
}

type Reservation struct {
	ID         uint   `gorm:"primaryKey"`
	PublicID   string `gorm:"size:36;not null;uniqueIndex"`
	ShowingID  uint   `gorm:"not null;index"`
	CustomerID uint   `gorm:"not null;index"`

	Seats []ReservationSeat `gorm:"foreignKey:ReservationID"`
	Items []ReservationItem `gorm:"foreignKey:ReservationID"`

	// Applied promotion snapshot, frozen at creation. Never recomputed,
	// even if the promotion's rules change afterwards.
	PromotionCode  string       `gorm:"size:32;index"`
	PromotionType  DiscountType `gorm:"type:varchar(16)"`
	PromotionValue int64

	Subtotal int64 `gorm:"not null"`
	Discount int64 `gorm:"not null"`
	Total    int64 `gorm:"not null"`

	Status        ReservationStatus `gorm:"type:varchar(16);not null;index"`
	PaymentStatus PaymentStatus     `gorm:"type:varchar(16);not null"`
	HoldExpiresAt time.Time         `gorm:"not null"`

	CancelledBy  string `gorm:"size:64"`
	CancelReason string `gorm:"size:255"`
	CancelledAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeatCodes returns the claimed seat codes in request order.
func (r *Reservation) SeatCodes() []string {
	codes := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		codes = append(codes, s.SeatCode)
	}
	return codes
}

type ReservationSeat struct {
	ID            uint     `gorm:"primaryKey"`
	ReservationID uint     `gorm:"not null;index"`
	ShowingID     uint     `gorm:"not null;index"`
	SeatCode      string   `gorm:"size:8;not null"`
	SeatType      SeatType `gorm:"type:varchar(16);not null"`
	Price         int64    `gorm:"not null"`
}

type ReservationItem struct {
	ID            uint   `gorm:"primaryKey"`
	ReservationID uint   `gorm:"not null;index"`
	Name          string `gorm:"size:100;not null"`
	UnitPrice     int64  `gorm:"not null"`
	Quantity      int    `gorm:"not null"`
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationRefunded  ReservationStatus = "refunded"
)

// Final reports whether no further lifecycle transition may leave s.
func (s ReservationStatus) Final() bool {
	return s == ReservationCancelled || s == ReservationRefunded
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Promotion struct {
	ID           uint         `gorm:"primaryKey"`
	Code         string       `gorm:"size:32;not null;uniqueIndex"`
	DiscountType DiscountType `gorm:"type:varchar(16);not null"`
	Value        int64        `gorm:"not null"`
	MaxDiscount  int64        `gorm:"not null;default:0"` // 0 = uncapped
	MinOrder     int64        `gorm:"not null;default:0"`
	StartAt      time.Time    `gorm:"not null"`
	EndAt        time.Time    `gorm:"not null"`
	Active       bool         `gorm:"not null;default:true"`
	MaxUses      int          `gorm:"not null;default:0"` // 0 = unlimited
	CurrentUses  int          `gorm:"not null;default:0"`

	FirstTimeOnly  bool `gorm:"not null;default:false"`
	MinPriorOrders int  `gorm:"not null;default:0"`
	OnePerCustomer bool `gorm:"not null;default:false"`

	Conditions []PromotionCondition `gorm:"foreignKey:PromotionID"`
}

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// PromotionCondition scopes a promotion to specific showings, movies or
// genres. A promotion with no conditions applies unconditionally.
type PromotionCondition struct {
	ID          uint          `gorm:"primaryKey"`
	PromotionID uint          `gorm:"not null;index"`
	Type        ConditionType `gorm:"type:varchar(16);not null"`
	Value       string        `gorm:"size:64;not null"`
}

type ConditionType string

const (
	ConditionShowing ConditionType = "showing"
	ConditionMovie   ConditionType = "movie"
	ConditionGenre   ConditionType = "genre"
)

// Payment mirrors the external payment collaborator's record. The engine
// only reacts to its status transitions; it never drives them.
type Payment struct {
	ID            uint          `gorm:"primaryKey"`
	ReservationID string        `gorm:"size:36;not null;index"`
	Amount        int64         `gorm:"not null"`
	Method        string        `gorm:"size:32"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time
}
