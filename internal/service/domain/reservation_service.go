package domain

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/cache"
	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/repository"
	"github.com/tamthien006/vexemphim/internal/service"
)

const defaultHoldDuration = 10 * time.Minute

type CreateReservationInput struct {
	ShowingID     uint
	CustomerID    uint
	SeatCodes     []string
	Items         []LineItem
	PromotionCode string
}

// ReservationService is the booking state machine:
// pending -> confirmed | cancelled, confirmed -> cancelled | refunded,
// cancelled -> refunded. No transition leaves cancelled or refunded except
// the refund acknowledgement.
type ReservationService interface {
	Create(in CreateReservationInput) (*model.Reservation, error)
	Confirm(reservationID string, amount int64, method string) (*model.Reservation, error)
	Cancel(reservationID, actor, reason string) (*model.Reservation, error)
	Expire(reservationID string) error
	MarkRefunded(reservationID string) (*model.Reservation, error)
}

type reservationService struct {
	reservations repository.ReservationRepo
	showings     repository.ShowingRepo
	seats        repository.SeatRepo
	promotions   repository.PromotionRepo
	ledger       BookingLedger
	pricing      PricingService
	validator    PromotionService
	occupancy    OccupancyService
	publisher    EventPublisher
	logger       *zap.Logger

	holdDuration time.Duration
	now          func() time.Time

	locks [64]sync.Mutex
}

var _ ReservationService = (*reservationService)(nil)

type ReservationOption func(*reservationService)

// WithHoldDuration overrides the default 10-minute hold window.
func WithHoldDuration(d time.Duration) ReservationOption {
	return func(s *reservationService) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

func WithClock(now func() time.Time) ReservationOption {
	return func(s *reservationService) {
		s.now = now
	}
}

func NewReservationService(
	reservations repository.ReservationRepo,
	showings repository.ShowingRepo,
	seats repository.SeatRepo,
	promotions repository.PromotionRepo,
	ledger BookingLedger,
	pricing PricingService,
	validator PromotionService,
	occupancy OccupancyService,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...ReservationOption,
) *reservationService {
	s := &reservationService{
		reservations: reservations,
		showings:     showings,
		seats:        seats,
		promotions:   promotions,
		ledger:       ledger,
		pricing:      pricing,
		validator:    validator,
		occupancy:    occupancy,
		publisher:    publisher,
		logger:       logger,
		holdDuration: defaultHoldDuration,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request, claims the seats atomically, freezes the
// price snapshot and persists a pending reservation with a hold expiry.
// On a seat conflict nothing is claimed and the conflicting seats are
// reported; retrying is the caller's decision.
func (s *reservationService) Create(in CreateReservationInput) (*model.Reservation, error) {
	now := s.now()

	showing, err := s.showings.GetByID(in.ShowingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrShowingUnavailable
		}
		return nil, err
	}
	if showing.Status != model.ShowingScheduled || !showing.StartAt.After(now) {
		return nil, service.ErrShowingUnavailable
	}

	requested, err := s.resolveSeats(showing.RoomID, in.SeatCodes)
	if err != nil {
		return nil, err
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: bad concession line %q", service.ErrInvalidRequest, item.Name)
		}
	}

	// Price in two steps: the promotion needs the pre-discount amount.
	base := s.pricing.Quote(showing, requested, in.Items, nil)

	var plan *DiscountPlan
	if in.PromotionCode != "" {
		plan, err = s.validator.Validate(in.PromotionCode, in.CustomerID, base.Subtotal, showing, now)
		if err != nil {
			return nil, err
		}
	}
	snap := s.pricing.Quote(showing, requested, in.Items, plan)

	reservationID := uuid.NewString()
	conflicts, err := s.ledger.ClaimSeats(showing.ID, reservationID, in.SeatCodes, s.holdDuration)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &service.SeatConflictError{Seats: conflicts}
	}

	res := &model.Reservation{
		PublicID:      reservationID,
		ShowingID:     showing.ID,
		CustomerID:    in.CustomerID,
		Subtotal:      snap.Subtotal,
		Discount:      snap.Discount,
		Total:         snap.Total,
		Status:        model.ReservationPending,
		PaymentStatus: model.PaymentPending,
		HoldExpiresAt: now.Add(s.holdDuration),
	}
	if plan != nil {
		res.PromotionCode = plan.Code
		res.PromotionType = plan.Type
		res.PromotionValue = plan.Value
	}
	for _, seat := range requested {
		res.Seats = append(res.Seats, model.ReservationSeat{
			ShowingID: showing.ID,
			SeatCode:  seat.Code,
			SeatType:  seat.Type,
			Price:     showing.SeatPrice(seat.Type),
		})
	}
	for _, item := range in.Items {
		res.Items = append(res.Items, model.ReservationItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	if err := s.reservations.Create(res); err != nil {
		// Undo the claim so the seats do not stay blocked for the full
		// hold window.
		if relErr := s.ledger.ReleaseSeats(showing.ID, reservationID, in.SeatCodes); relErr != nil {
			s.logger.Error("failed to release seats after persist failure",
				zap.String("reservation_id", reservationID), zap.Error(relErr))
		}
		return nil, err
	}

	s.refreshOccupancy(showing.ID, now)
	s.publisher.ReservationStateChanged(reservationID, "", model.ReservationPending)
	s.logger.Info("reservation created",
		zap.String("reservation_id", reservationID),
		zap.Uint("showing_id", showing.ID),
		zap.Strings("seats", in.SeatCodes),
		zap.Int64("total", snap.Total),
	)
	return res, nil
}

// resolveSeats checks the requested codes exist in the room, are unique
// within the request and are not under maintenance, and returns them in
// request order.
func (s *reservationService) resolveSeats(roomID uint, codes []string) ([]model.Seat, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", service.ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			return nil, fmt.Errorf("%w: duplicate seat %s in request", service.ErrInvalidRequest, code)
		}
		seen[code] = true
	}

	found, err := s.seats.GetByRoomAndCodes(roomID, codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.Seat, len(found))
	for _, seat := range found {
		byCode[seat.Code] = seat
	}

	ordered := make([]model.Seat, 0, len(codes))
	for _, code := range codes {
		seat, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: seat %s does not exist in room %d", service.ErrInvalidRequest, code, roomID)
		}
		if seat.Maintenance {
			return nil, fmt.Errorf("%w: seat %s is under maintenance", service.ErrInvalidRequest, code)
		}
		ordered = append(ordered, seat)
	}
	return ordered, nil
}

// reservationLock returns the mutex serializing lifecycle transitions for
// a reservation, so concurrent mutations observe each other's final state
// instead of both emitting a transition.
func (s *reservationService) reservationLock(reservationID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(reservationID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// Confirm finalizes a pending reservation on a payment-success event. The
// hold must still be live; the promotion use, when one applies, commits
// exactly once here.
func (s *reservationService) Confirm(reservationID string, amount int64, method string) (*model.Reservation, error) {
	lock := s.reservationLock(reservationID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	res, err := s.getByPublicID(reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationPending {
		return nil, service.ErrAlreadyFinal
	}
	if now.After(res.HoldExpiresAt) {
		// Lazy expiry at the point of use: reclaim now instead of
		// waiting for the sweep.
		s.expire(res, now)
		return nil, service.ErrHoldExpired
	}

	if res.PromotionCode != "" {
		promo, err := s.promotions.GetByCode(res.PromotionCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &service.PromotionRejectedError{Code: res.PromotionCode, Reason: service.PromotionNotFound}
			}
			// Never run the cap check with a defaulted limit; the caller
			// retries the confirm once the store recovers.
			return nil, err
		}
		if err := s.ledger.UsePromotion(res.PromotionCode, res.PublicID, promo.MaxUses); err != nil {
			if errors.Is(err, cache.ErrPromotionExhausted) {
				return nil, &service.PromotionRejectedError{Code: res.PromotionCode, Reason: service.PromotionExhausted}
			}
			return nil, err
		}
	}

	if err := s.ledger.PersistSeats(res.ShowingID, res.PublicID, res.SeatCodes()); err != nil {
		if res.PromotionCode != "" {
			if relErr := s.ledger.ReleasePromotionUse(res.PromotionCode, res.PublicID); relErr != nil {
				s.logger.Error("failed to release promotion use",
					zap.String("reservation_id", res.PublicID), zap.Error(relErr))
			}
		}
		if errors.Is(err, cache.ErrHoldLost) {
			s.expire(res, now)
			return nil, service.ErrHoldExpired
		}
		return nil, err
	}

	if res.PromotionCode != "" {
		if err := s.promotions.IncrementUsage(res.PromotionCode); err != nil {
			// The per-reservation marker keeps the cache increment
			// idempotent, so a retried confirm is safe.
			return nil, err
		}
	}

	res.Status = model.ReservationConfirmed
	res.PaymentStatus = model.PaymentCompleted
	if err := s.reservations.Save(res); err != nil {
		return nil, err
	}

	s.refreshOccupancy(res.ShowingID, now)
	s.publisher.ReservationStateChanged(res.PublicID, model.ReservationPending, model.ReservationConfirmed)
	if res.PromotionCode != "" {
		s.publisher.PromotionUsed(res.PromotionCode, res.PublicID)
	}
	s.logger.Info("reservation confirmed",
		zap.String("reservation_id", res.PublicID),
		zap.Int64("amount", amount),
		zap.String("method", method),
	)
	return res, nil
}

// Cancel is allowed from pending or confirmed. Seats are freed
// immediately; for a confirmed reservation the payment status is left for
// the external payment collaborator to drive toward refunded.
func (s *reservationService) Cancel(reservationID, actor, reason string) (*model.Reservation, error) {
	lock := s.reservationLock(reservationID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	res, err := s.getByPublicID(reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status.Final() {
		return nil, service.ErrAlreadyFinal
	}

	// Release first: the script is idempotent, so a retry after a failed
	// save frees nothing twice.
	if err := s.ledger.ReleaseSeats(res.ShowingID, res.PublicID, res.SeatCodes()); err != nil {
		return nil, err
	}

	oldStatus := res.Status
	res.Status = model.ReservationCancelled
	res.CancelledBy = actor
	res.CancelReason = reason
	res.CancelledAt = &now
	if err := s.reservations.Save(res); err != nil {
		return nil, err
	}

	s.refreshOccupancy(res.ShowingID, now)
	s.publisher.ReservationStateChanged(res.PublicID, oldStatus, model.ReservationCancelled)
	s.logger.Info("reservation cancelled",
		zap.String("reservation_id", res.PublicID),
		zap.String("actor", actor),
		zap.String("reason", reason),
	)
	return res, nil
}

// Expire physically reclaims a pending reservation whose hold has lapsed.
// Expiry is already enforced synchronously at every point of use; this
// sweep entry point only does the cleanup, so a missing or late sweep
// never causes an incorrect accept.
func (s *reservationService) Expire(reservationID string) error {
	lock := s.reservationLock(reservationID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	res, err := s.getByPublicID(reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationPending {
		return nil
	}
	if res.HoldExpiresAt.After(now) {
		return nil
	}
	s.expire(res, now)
	return nil
}

func (s *reservationService) expire(res *model.Reservation, now time.Time) {
	if err := s.ledger.ReleaseSeats(res.ShowingID, res.PublicID, res.SeatCodes()); err != nil {
		s.logger.Error("failed to release expired hold",
			zap.String("reservation_id", res.PublicID), zap.Error(err))
	}
	res.Status = model.ReservationCancelled
	res.CancelledBy = "system"
	res.CancelReason = "hold expired"
	res.CancelledAt = &now
	if err := s.reservations.Save(res); err != nil {
		s.logger.Error("failed to persist hold expiry",
			zap.String("reservation_id", res.PublicID), zap.Error(err))
		return
	}
	s.refreshOccupancy(res.ShowingID, now)
	s.publisher.ReservationStateChanged(res.PublicID, model.ReservationPending, model.ReservationCancelled)
	s.logger.Info("reservation hold expired", zap.String("reservation_id", res.PublicID))
}

// MarkRefunded acknowledges a successful refund reported by the payment
// collaborator, from cancelled or confirmed.
func (s *reservationService) MarkRefunded(reservationID string) (*model.Reservation, error) {
	lock := s.reservationLock(reservationID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	res, err := s.getByPublicID(reservationID)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case model.ReservationCancelled, model.ReservationConfirmed:
	case model.ReservationRefunded:
		return nil, service.ErrAlreadyFinal
	default:
		return nil, fmt.Errorf("%w: cannot refund a %s reservation", service.ErrInvalidRequest, res.Status)
	}

	if res.Status == model.ReservationConfirmed {
		if err := s.ledger.ReleaseSeats(res.ShowingID, res.PublicID, res.SeatCodes()); err != nil {
			return nil, err
		}
	}

	oldStatus := res.Status
	res.Status = model.ReservationRefunded
	res.PaymentStatus = model.PaymentRefunded
	if err := s.reservations.Save(res); err != nil {
		return nil, err
	}

	s.refreshOccupancy(res.ShowingID, now)
	s.publisher.ReservationStateChanged(res.PublicID, oldStatus, model.ReservationRefunded)
	s.logger.Info("reservation refunded", zap.String("reservation_id", res.PublicID))
	return res, nil
}

func (s *reservationService) getByPublicID(reservationID string) (*model.Reservation, error) {
	res, err := s.reservations.GetByPublicID(reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// refreshOccupancy recomputes the derived occupancy as part of the same
// logical operation that changed it, then notifies external consumers.
func (s *reservationService) refreshOccupancy(showingID uint, now time.Time) {
	occ, err := s.occupancy.Recompute(showingID, now)
	if err != nil {
		s.logger.Error("failed to recompute occupancy",
			zap.Uint("showing_id", showingID), zap.Error(err))
		return
	}
	s.publisher.OccupancyChanged(showingID, occ.Booked, occ.Capacity, occ.IsFull)
}
