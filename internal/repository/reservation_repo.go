package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
)

type ReservationRepo interface {
	WithTx(tx *gorm.DB) ReservationRepo
	// Create persists the reservation with its seats and items in one
	// transaction.
	Create(res *model.Reservation) error
	GetByPublicID(publicID string) (*model.Reservation, error)
	Save(res *model.Reservation) error
	// CountActiveSeats counts seats held by non-cancelled reservations
	// whose hold has not expired. A pending reservation past its expiry is
	// treated as released even before the sweep reclaims it.
	CountActiveSeats(showingID uint, now time.Time) (int, error)
	CountPaidByCustomer(customerID uint) (int, error)
	// CountByCustomerAndPromotion counts non-cancelled reservations of the
	// customer carrying the promotion code.
	CountByCustomerAndPromotion(customerID uint, code string) (int, error)
}

type reservationRepoGorm struct {
	db *gorm.DB
}

var _ ReservationRepo = (*reservationRepoGorm)(nil)

func NewReservationRepoGorm(db *gorm.DB) *reservationRepoGorm {
	return &reservationRepoGorm{
		db: db,
	}
}

func (r *reservationRepoGorm) WithTx(tx *gorm.DB) ReservationRepo {
	return &reservationRepoGorm{
		db: tx,
	}
}

func (r *reservationRepoGorm) Create(res *model.Reservation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(res).Error
	})
}

func (r *reservationRepoGorm) GetByPublicID(publicID string) (*model.Reservation, error) {
	ctx := context.Background()
	res, err := gorm.G[model.Reservation](r.db).
		Where(&model.Reservation{PublicID: publicID}).
		Preload("Seats", nil).
		Preload("Items", nil).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepoGorm) Save(res *model.Reservation) error {
	return r.db.Save(res).Error
}

func (r *reservationRepoGorm) CountActiveSeats(showingID uint, now time.Time) (int, error) {
	var count int64
	err := r.db.Model(&model.ReservationSeat{}).
		Joins("JOIN reservations ON reservations.id = reservation_seats.reservation_id").
		Where("reservation_seats.showing_id = ?", showingID).
		Where("reservations.status = ? OR (reservations.status = ? AND reservations.hold_expires_at > ?)",
			model.ReservationConfirmed, model.ReservationPending, now).
		Count(&count).Error
	return int(count), err
}

func (r *reservationRepoGorm) CountPaidByCustomer(customerID uint) (int, error) {
	var count int64
	err := r.db.Model(&model.Reservation{}).
		Where("customer_id = ? AND payment_status = ?", customerID, model.PaymentCompleted).
		Count(&count).Error
	return int(count), err
}

func (r *reservationRepoGorm) CountByCustomerAndPromotion(customerID uint, code string) (int, error) {
	var count int64
	err := r.db.Model(&model.Reservation{}).
		Where("customer_id = ? AND promotion_code = ? AND status <> ?",
			customerID, code, model.ReservationCancelled).
		Count(&count).Error
	return int(count), err
}
