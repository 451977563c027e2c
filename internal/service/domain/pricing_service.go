package domain

import (
	"github.com/tamthien006/vexemphim/internal/model"
)

// LineItem is a concession line on a booking request.
type LineItem struct {
	Name      string
	UnitPrice int64
	Quantity  int
}

// Snapshot is the frozen price computation stored on a reservation. Once
// a reservation leaves pending, the stored snapshot is authoritative and
// is never recomputed from later price table or promotion edits.
type Snapshot struct {
	Subtotal int64
	Discount int64
	Total    int64
}

type PricingService interface {
	Quote(showing *model.Showing, seats []model.Seat, items []LineItem, plan *DiscountPlan) Snapshot
}

type pricingService struct{}

var _ PricingService = (*pricingService)(nil)

func NewPricingService() *pricingService {
	return &pricingService{}
}

// Quote is a pure computation: the same inputs always yield the same
// snapshot.
func (s *pricingService) Quote(showing *model.Showing, seats []model.Seat, items []LineItem, plan *DiscountPlan) Snapshot {
	var subtotal int64
	for _, seat := range seats {
		subtotal += showing.SeatPrice(seat.Type)
	}
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	var discount int64
	if plan != nil {
		discount = plan.DiscountFor(subtotal)
	}

	return Snapshot{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}
}
