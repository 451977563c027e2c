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

// PaymentWorkflow feeds the external payment collaborator's terminal
// outcomes back into the reservation state machine.
type PaymentWorkflow struct {
	ReservationService domain.ReservationService
	Logger             *zap.Logger
}

func NewPaymentWorkflow(reservationService domain.ReservationService, logger *zap.Logger) *PaymentWorkflow {
	return &PaymentWorkflow{
		ReservationService: reservationService,
		Logger:             logger,
	}
}

func (w *PaymentWorkflow) Start(mqConn *amqp.Connection) error {
	return w.ConsumePaymentOutcome(mqConn)
}

func (w *PaymentWorkflow) ConsumePaymentOutcome(conn *amqp.Connection) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(mq.PaymentOutcomeQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			w.handlePaymentOutcome(msg)
		}
	}()

	return nil
}

func (w *PaymentWorkflow) handlePaymentOutcome(msg amqp.Delivery) {
	var message mq.PaymentOutcomeMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		w.Logger.Warn("dropping malformed payment outcome", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	var err error
	switch message.Status {
	case mq.PaymentOutcomeSuccess:
		_, err = w.ReservationService.Confirm(message.ReservationID, message.Amount, message.Method)
	case mq.PaymentOutcomeFailed:
		_, err = w.ReservationService.Cancel(message.ReservationID, "payment", "payment failed")
	case mq.PaymentOutcomeRefunded:
		_, err = w.ReservationService.MarkRefunded(message.ReservationID)
	default:
		w.Logger.Warn("dropping payment outcome with unknown status",
			zap.String("reservation_id", message.ReservationID),
			zap.String("status", message.Status))
		msg.Nack(false, false)
		return
	}

	if err != nil {
		if terminalOutcomeError(err) {
			// The state machine rejected the transition; redelivery
			// cannot change that.
			w.Logger.Info("payment outcome rejected by state machine",
				zap.String("reservation_id", message.ReservationID),
				zap.String("status", message.Status),
				zap.Error(err))
			msg.Ack(false)
			return
		}
		w.Logger.Error("failed to handle payment outcome, requeueing",
			zap.String("reservation_id", message.ReservationID), zap.Error(err))
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

func terminalOutcomeError(err error) bool {
	var rejected *service.PromotionRejectedError
	return errors.Is(err, service.ErrAlreadyFinal) ||
		errors.Is(err, service.ErrHoldExpired) ||
		errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrInvalidRequest) ||
		errors.As(err, &rejected)
}
