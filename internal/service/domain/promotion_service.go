package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/repository"
	"github.com/tamthien006/vexemphim/internal/service"
)

// DiscountPlan is the frozen discount computation a successful validation
// returns. It captures the promotion's terms at validation time; later
// edits to the promotion do not affect it.
type DiscountPlan struct {
	Code        string
	Type        model.DiscountType
	Value       int64
	MaxDiscount int64
}

// DiscountFor computes the discount amount for an order total. Percent
// plans are capped at MaxDiscount when one is set; fixed plans never
// exceed the amount itself.
func (p *DiscountPlan) DiscountFor(amount int64) int64 {
	switch p.Type {
	case model.DiscountPercent:
		d := amount * p.Value / 100
		if p.MaxDiscount > 0 && d > p.MaxDiscount {
			return p.MaxDiscount
		}
		return d
	case model.DiscountFixed:
		if p.Value > amount {
			return amount
		}
		return p.Value
	}
	return 0
}

// NormalizeCode case-normalizes a promotion code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type PromotionService interface {
	// Validate evaluates the code against eligibility rules and returns a
	// frozen discount plan. It reads state, never mutates it. The caller
	// reads "now" once per logical operation and passes it through so all
	// sub-checks see the same instant.
	Validate(code string, customerID uint, orderAmount int64, showing *model.Showing, now time.Time) (*DiscountPlan, error)
}

type promotionService struct {
	promotions   repository.PromotionRepo
	reservations repository.ReservationRepo
	movies       repository.MovieRepo
}

var _ PromotionService = (*promotionService)(nil)

func NewPromotionService(promotions repository.PromotionRepo, reservations repository.ReservationRepo, movies repository.MovieRepo) *promotionService {
	return &promotionService{
		promotions:   promotions,
		reservations: reservations,
		movies:       movies,
	}
}

// Validate short-circuits on the first failing check, in a fixed order:
// existence and active window, usage cap, minimum order amount,
// applicability, customer eligibility. Every rejection carries a specific
// reason.
func (s *promotionService) Validate(code string, customerID uint, orderAmount int64, showing *model.Showing, now time.Time) (*DiscountPlan, error) {
	code = NormalizeCode(code)

	promo, err := s.promotions.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionNotFound}
		}
		return nil, err
	}

	if !promo.Active || now.Before(promo.StartAt) || now.After(promo.EndAt) {
		return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionExpired}
	}

	if promo.MaxUses > 0 && promo.CurrentUses >= promo.MaxUses {
		return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionExhausted}
	}

	if orderAmount < promo.MinOrder {
		return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionBelowMinimum}
	}

	applicable, err := s.applies(promo, showing)
	if err != nil {
		return nil, err
	}
	if !applicable {
		return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionInapplicable}
	}

	eligible, err := s.eligible(promo, customerID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, &service.PromotionRejectedError{Code: code, Reason: service.PromotionIneligible}
	}

	return &DiscountPlan{
		Code:        promo.Code,
		Type:        promo.DiscountType,
		Value:       promo.Value,
		MaxDiscount: promo.MaxDiscount,
	}, nil
}

// applies checks the promotion's applicability set: an explicit showing or
// movie list, a genre list, or unconditional when no conditions exist.
func (s *promotionService) applies(promo *model.Promotion, showing *model.Showing) (bool, error) {
	if len(promo.Conditions) == 0 {
		return true, nil
	}
	for _, cond := range promo.Conditions {
		switch cond.Type {
		case model.ConditionShowing:
			if cond.Value == strconv.FormatUint(uint64(showing.ID), 10) {
				return true, nil
			}
		case model.ConditionMovie:
			if cond.Value == strconv.FormatUint(uint64(showing.MovieID), 10) {
				return true, nil
			}
		case model.ConditionGenre:
			movie, err := s.movies.GetByID(showing.MovieID)
			if err != nil {
				return false, err
			}
			if strings.EqualFold(cond.Value, movie.Genre) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *promotionService) eligible(promo *model.Promotion, customerID uint) (bool, error) {
	if promo.FirstTimeOnly || promo.MinPriorOrders > 0 {
		paid, err := s.reservations.CountPaidByCustomer(customerID)
		if err != nil {
			return false, err
		}
		if promo.FirstTimeOnly && paid != 0 {
			return false, nil
		}
		if paid < promo.MinPriorOrders {
			return false, nil
		}
	}
	if promo.OnePerCustomer {
		used, err := s.reservations.CountByCustomerAndPromotion(customerID, promo.Code)
		if err != nil {
			return false, err
		}
		if used > 0 {
			return false, nil
		}
	}
	return true, nil
}
