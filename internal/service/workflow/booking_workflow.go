package workflow

import (
	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/mq"
	"github.com/tamthien006/vexemphim/internal/service/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type BookingWorkflow struct {
	ReservationService domain.ReservationService
	MQConn             *amqp.Connection
	Logger             *zap.Logger
}

func NewBookingWorkflow(reservationService domain.ReservationService, mqConn *amqp.Connection, logger *zap.Logger) *BookingWorkflow {
	return &BookingWorkflow{
		ReservationService: reservationService,
		MQConn:             mqConn,
		Logger:             logger,
	}
}

// CreateReservation creates the hold and schedules its expiry sweep. The
// sweep is cleanup only: expiry is enforced synchronously at every point
// of use, so a failed schedule degrades to a log line, not an error.
func (w *BookingWorkflow) CreateReservation(in domain.CreateReservationInput) (*model.Reservation, error) {
	res, err := w.ReservationService.Create(in)
	if err != nil {
		return nil, err
	}

	ch, err := mq.NewChannel(w.MQConn)
	if err != nil {
		w.Logger.Warn("failed to open channel for expiry scheduling",
			zap.String("reservation_id", res.PublicID), zap.Error(err))
		return res, nil
	}
	defer ch.Close()

	if err := mq.SendDelayMessage(ch, mq.HoldExpiryDelayQueue,
		mq.HoldExpiryMessage{
			ReservationID: res.PublicID,
		}); err != nil {
		w.Logger.Warn("failed to schedule hold expiry sweep",
			zap.String("reservation_id", res.PublicID), zap.Error(err))
	}

	return res, nil
}
