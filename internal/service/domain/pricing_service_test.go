package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tamthien006/vexemphim/internal/model"
)

func pricedShowing() *model.Showing {
	return &model.Showing{
		ID:            1,
		PriceStandard: 90000,
		PriceVIP:      120000,
	}
}

func TestQuoteWithoutPromotion(t *testing.T) {
	pricing := NewPricingService()

	seats := []model.Seat{
		{Code: "A1", Type: model.SeatVIP},
		{Code: "B3", Type: model.SeatStandard},
	}
	items := []LineItem{
		{Name: "popcorn combo", UnitPrice: 50000, Quantity: 2},
	}

	snap := pricing.Quote(pricedShowing(), seats, items, nil)

	assert.Equal(t, int64(310000), snap.Subtotal)
	assert.Equal(t, int64(0), snap.Discount)
	assert.Equal(t, int64(310000), snap.Total)
}

func TestQuoteWithCappedPercentPromotion(t *testing.T) {
	pricing := NewPricingService()

	seats := []model.Seat{
		{Code: "A1", Type: model.SeatVIP},
		{Code: "B3", Type: model.SeatStandard},
	}
	items := []LineItem{
		{Name: "popcorn combo", UnitPrice: 50000, Quantity: 2},
	}
	plan := &DiscountPlan{
		Code:        "SUMMER10",
		Type:        model.DiscountPercent,
		Value:       10,
		MaxDiscount: 25000,
	}

	snap := pricing.Quote(pricedShowing(), seats, items, plan)

	// 10% of 310000 is 31000, capped at 25000.
	assert.Equal(t, int64(310000), snap.Subtotal)
	assert.Equal(t, int64(25000), snap.Discount)
	assert.Equal(t, int64(285000), snap.Total)
}

func TestQuoteFixedDiscountNeverExceedsSubtotal(t *testing.T) {
	pricing := NewPricingService()

	seats := []model.Seat{{Code: "B3", Type: model.SeatStandard}}
	plan := &DiscountPlan{
		Code:  "MEGA",
		Type:  model.DiscountFixed,
		Value: 500000,
	}

	snap := pricing.Quote(pricedShowing(), seats, nil, plan)

	assert.Equal(t, int64(90000), snap.Subtotal)
	assert.Equal(t, int64(90000), snap.Discount)
	assert.Equal(t, int64(0), snap.Total)
}

func TestQuoteIsIdempotent(t *testing.T) {
	pricing := NewPricingService()

	seats := []model.Seat{
		{Code: "A1", Type: model.SeatVIP},
		{Code: "A2", Type: model.SeatVIP},
	}
	items := []LineItem{{Name: "soda", UnitPrice: 20000, Quantity: 3}}
	plan := &DiscountPlan{Code: "TEN", Type: model.DiscountPercent, Value: 10}

	first := pricing.Quote(pricedShowing(), seats, items, plan)
	second := pricing.Quote(pricedShowing(), seats, items, plan)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Subtotal-first.Discount, first.Total)
}

func TestDiscountForUncappedPercent(t *testing.T) {
	plan := &DiscountPlan{Type: model.DiscountPercent, Value: 25}
	assert.Equal(t, int64(25000), plan.DiscountFor(100000))
}

func TestDiscountForFixedBelowAmount(t *testing.T) {
	plan := &DiscountPlan{Type: model.DiscountFixed, Value: 30000}
	assert.Equal(t, int64(30000), plan.DiscountFor(100000))
}
