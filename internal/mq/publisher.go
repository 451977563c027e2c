package mq

import (
	"go.uber.org/zap"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tamthien006/vexemphim/internal/model"
)

// EventPublisher publishes engine events to the booking.events exchange.
// Publishing is fire-and-forget: failures are logged, never propagated,
// because the engine must not block on notification collaborators.
type EventPublisher struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewEventPublisher(conn *amqp.Connection, logger *zap.Logger) (*EventPublisher, error) {
	ch, err := NewChannel(conn)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{
		ch:     ch,
		logger: logger,
	}, nil
}

func (p *EventPublisher) OccupancyChanged(showingID uint, booked, capacity int, isFull bool) {
	err := PublishEvent(p.ch, OccupancyChangedKey, OccupancyChangedEvent{
		ShowingID: showingID,
		Booked:    booked,
		Capacity:  capacity,
		IsFull:    isFull,
	})
	if err != nil {
		p.logger.Warn("failed to publish occupancy event",
			zap.Uint("showing_id", showingID), zap.Error(err))
	}
}

func (p *EventPublisher) ReservationStateChanged(reservationID string, oldState, newState model.ReservationStatus) {
	err := PublishEvent(p.ch, ReservationStateChangedKey, ReservationStateChangedEvent{
		ReservationID: reservationID,
		OldState:      string(oldState),
		NewState:      string(newState),
	})
	if err != nil {
		p.logger.Warn("failed to publish reservation state event",
			zap.String("reservation_id", reservationID), zap.Error(err))
	}
}

func (p *EventPublisher) PromotionUsed(code, reservationID string) {
	err := PublishEvent(p.ch, PromotionUsedKey, PromotionUsedEvent{
		Code:          code,
		ReservationID: reservationID,
	})
	if err != nil {
		p.logger.Warn("failed to publish promotion used event",
			zap.String("code", code), zap.Error(err))
	}
}
