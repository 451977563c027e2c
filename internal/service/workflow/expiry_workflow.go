package workflow

import (
	"encoding/json"
	"errors"

	"github.com/tamthien006/vexemphim/internal/mq"
	"github.com/tamthien006/vexemphim/internal/service"
	"github.com/tamthien006/vexemphim/internal/service/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExpiryWorkflow consumes dead-lettered hold messages and physically
// reclaims lapsed holds. The reservation service re-checks the expiry
// itself, so a message arriving for a confirmed or already-cancelled
// reservation is a no-op.
type ExpiryWorkflow struct {
	ReservationService domain.ReservationService
	Logger             *zap.Logger
}

func NewExpiryWorkflow(reservationService domain.ReservationService, logger *zap.Logger) *ExpiryWorkflow {
	return &ExpiryWorkflow{
		ReservationService: reservationService,
		Logger:             logger,
	}
}

func (w *ExpiryWorkflow) Start(mqConn *amqp.Connection) error {
	return w.ConsumeHoldExpiry(mqConn)
}

func (w *ExpiryWorkflow) ConsumeHoldExpiry(conn *amqp.Connection) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(mq.HoldExpiryQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			w.handleHoldExpiry(msg)
		}
	}()

	return nil
}

func (w *ExpiryWorkflow) handleHoldExpiry(msg amqp.Delivery) {
	var message mq.HoldExpiryMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		msg.Nack(false, false)
		return
	}

	if err := w.ReservationService.Expire(message.ReservationID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			msg.Ack(false)
			return
		}
		w.Logger.Error("failed to sweep expired hold, requeueing",
			zap.String("reservation_id", message.ReservationID), zap.Error(err))
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}
