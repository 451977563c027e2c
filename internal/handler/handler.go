package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamthien006/vexemphim/internal/app"
	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/mq"
	"github.com/tamthien006/vexemphim/internal/service"
	"github.com/tamthien006/vexemphim/internal/service/domain"
)

type BookingHandler struct {
	app *app.App
}

func NewBookingHandler(app *app.App) *BookingHandler {
	return &BookingHandler{
		app: app,
	}
}

func (h *BookingHandler) Register(r *gin.Engine) {
	r.POST("/reservations", h.HandleCreateReservation)
	r.POST("/reservations/:id/confirm", h.HandleConfirmReservation)
	r.POST("/reservations/:id/cancel", h.HandleCancelReservation)
	r.POST("/showings", h.HandleCreateShowing)
	r.GET("/rooms/:id/slots", h.HandleFindAvailableSlots)
	r.GET("/showings/:id/occupancy", h.HandleGetOccupancy)
}

type CreateReservationRequest struct {
	ShowingID     uint              `json:"showing_id" binding:"required"`
	CustomerID    uint              `json:"customer_id" binding:"required"`
	Seats         []string          `json:"seats" binding:"required"`
	Items         []LineItemRequest `json:"items"`
	PromotionCode string            `json:"promotion_code"`
}

type LineItemRequest struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

func (h *BookingHandler) HandleCreateReservation(ctx *gin.Context) {
	var req CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{
			"error":  "Invalid request format",
			"detail": err.Error(),
		})
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	res, err := h.app.BookingWorkflow.CreateReservation(domain.CreateReservationInput{
		ShowingID:     req.ShowingID,
		CustomerID:    req.CustomerID,
		SeatCodes:     req.Seats,
		Items:         items,
		PromotionCode: req.PromotionCode,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(201, reservationResponse(res))
}

type ConfirmReservationRequest struct {
	Status string `json:"status" binding:"required"`
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

// HandleConfirmReservation accepts a payment outcome pushed over HTTP.
// The same transitions are normally driven by the payment outcome queue.
func (h *BookingHandler) HandleConfirmReservation(ctx *gin.Context) {
	var req ConfirmReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{
			"error":  "Invalid request format",
			"detail": err.Error(),
		})
		return
	}

	id := ctx.Param("id")
	var (
		res *model.Reservation
		err error
	)
	switch req.Status {
	case mq.PaymentOutcomeSuccess:
		res, err = h.app.ReservationService.Confirm(id, req.Amount, req.Method)
	case mq.PaymentOutcomeFailed:
		res, err = h.app.ReservationService.Cancel(id, "payment", "payment failed")
	case mq.PaymentOutcomeRefunded:
		res, err = h.app.ReservationService.MarkRefunded(id)
	default:
		ctx.JSON(400, gin.H{"error": "Unknown payment status"})
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, reservationResponse(res))
}

type CancelReservationRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

func (h *BookingHandler) HandleCancelReservation(ctx *gin.Context) {
	var req CancelReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{
			"error":  "Invalid request format",
			"detail": err.Error(),
		})
		return
	}

	res, err := h.app.ReservationService.Cancel(ctx.Param("id"), req.Actor, req.Reason)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, reservationResponse(res))
}

type CreateShowingRequest struct {
	MovieID       uint      `json:"movie_id" binding:"required"`
	RoomID        uint      `json:"room_id" binding:"required"`
	StartAt       time.Time `json:"start_at" binding:"required"`
	PriceStandard int64     `json:"price_standard" binding:"required"`
	PriceVIP      int64     `json:"price_vip" binding:"required"`
}

func (h *BookingHandler) HandleCreateShowing(ctx *gin.Context) {
	var req CreateShowingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{
			"error":  "Invalid request format",
			"detail": err.Error(),
		})
		return
	}

	showing, err := h.app.SlotService.ReserveSlot(req.MovieID, req.RoomID, req.StartAt, req.PriceStandard, req.PriceVIP)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(201, showing)
}

func (h *BookingHandler) HandleFindAvailableSlots(ctx *gin.Context) {
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "Invalid room id"})
		return
	}
	day, err := time.Parse("2006-01-02", ctx.Query("date"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	durationMinutes, err := strconv.Atoi(ctx.Query("duration_minutes"))
	if err != nil || durationMinutes <= 0 {
		ctx.JSON(400, gin.H{"error": "Invalid duration_minutes"})
		return
	}

	type slot struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}
	slots := make([]slot, 0)
	for interval := range h.app.SlotService.FindAvailableSlots(uint(roomID), day, time.Duration(durationMinutes)*time.Minute) {
		slots = append(slots, slot{Start: interval.Start, End: interval.End})
	}

	ctx.JSON(200, gin.H{"slots": slots})
}

func (h *BookingHandler) HandleGetOccupancy(ctx *gin.Context) {
	showingID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "Invalid showing id"})
		return
	}

	occ, err := h.app.OccupancyService.Occupancy(uint(showingID), time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, gin.H{
		"booked_seats": occ.Booked,
		"capacity":     occ.Capacity,
		"is_full":      occ.IsFull,
	})
}

func reservationResponse(res *model.Reservation) gin.H {
	return gin.H{
		"reservation_id": res.PublicID,
		"showing_id":     res.ShowingID,
		"customer_id":    res.CustomerID,
		"seats":          res.SeatCodes(),
		"subtotal":       res.Subtotal,
		"discount":       res.Discount,
		"total":          res.Total,
		"status":         res.Status,
		"payment_status": res.PaymentStatus,
		"hold_expires":   res.HoldExpiresAt,
	}
}

func respondError(ctx *gin.Context, err error) {
	var seatConflict *service.SeatConflictError
	if errors.As(err, &seatConflict) {
		ctx.JSON(409, gin.H{
			"error": "Seat conflict",
			"seats": seatConflict.Seats,
		})
		return
	}
	var roomConflict *service.RoomConflictError
	if errors.As(err, &roomConflict) {
		ctx.JSON(409, gin.H{
			"error":               "Room conflict",
			"existing_showing_id": roomConflict.ExistingShowingID,
		})
		return
	}
	var rejected *service.PromotionRejectedError
	if errors.As(err, &rejected) {
		ctx.JSON(422, gin.H{
			"error":  "Promotion rejected",
			"code":   rejected.Code,
			"reason": rejected.Reason,
		})
		return
	}
	switch {
	case errors.Is(err, service.ErrHoldExpired):
		ctx.JSON(410, gin.H{
			"error":   "Hold expired",
			"message": "The reservation hold has lapsed, please start over",
		})
	case errors.Is(err, service.ErrAlreadyFinal):
		ctx.JSON(409, gin.H{"error": "Reservation already finalized"})
	case errors.Is(err, service.ErrShowingUnavailable):
		ctx.JSON(422, gin.H{"error": "Showing is not open for booking"})
	case errors.Is(err, service.ErrInvalidRequest):
		ctx.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(404, gin.H{"error": "Not found"})
	default:
		ctx.JSON(500, gin.H{
			"error":   "Internal server error",
			"message": "Failed to process request, please try again later",
		})
	}
}
