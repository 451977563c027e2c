package app

import (
	"github.com/tamthien006/vexemphim/config"
	"github.com/tamthien006/vexemphim/internal/cache"
	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/mq"
	"github.com/tamthien006/vexemphim/internal/repository"
	"github.com/tamthien006/vexemphim/internal/service/domain"
	"github.com/tamthien006/vexemphim/internal/service/workflow"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config

	DB     *gorm.DB
	Cache  *cache.RedisCache
	Logger *zap.Logger
	MQConn *amqp.Connection

	ShowingRepo     repository.ShowingRepo
	ReservationRepo repository.ReservationRepo
	PromotionRepo   repository.PromotionRepo

	SlotService        domain.SlotService
	PricingService     domain.PricingService
	PromotionService   domain.PromotionService
	OccupancyService   domain.OccupancyService
	ReservationService domain.ReservationService

	BookingWorkflow *workflow.BookingWorkflow
	PaymentWorkflow *workflow.PaymentWorkflow
	ExpiryWorkflow  *workflow.ExpiryWorkflow
}

func New(cfg *config.Config, db *gorm.DB, redisCache *cache.RedisCache, mqConn *amqp.Connection, logger *zap.Logger) (*App, error) {
	showingRepo := repository.NewShowingRepoGorm(db)
	reservationRepo := repository.NewReservationRepoGorm(db)
	promotionRepo := repository.NewPromotionRepoGorm(db)
	roomRepo := repository.NewRoomRepoGorm(db)
	seatRepo := repository.NewSeatRepoGorm(db)
	movieRepo := repository.NewMovieRepoGorm(db)

	slotService := domain.NewSlotService(showingRepo, movieRepo, logger,
		domain.WithCleaningBuffer(cfg.CleaningBuffer),
		domain.WithOperatingWindow(cfg.OpeningHour, cfg.ClosingHour, cfg.SlotStep),
	)
	pricingService := domain.NewPricingService()
	promotionService := domain.NewPromotionService(promotionRepo, reservationRepo, movieRepo)
	occupancyService := domain.NewOccupancyService(showingRepo, roomRepo, reservationRepo)

	publisher, err := mq.NewEventPublisher(mqConn, logger)
	if err != nil {
		return nil, err
	}

	reservationService := domain.NewReservationService(
		reservationRepo,
		showingRepo,
		seatRepo,
		promotionRepo,
		redisCache,
		pricingService,
		promotionService,
		occupancyService,
		publisher,
		logger,
		domain.WithHoldDuration(cfg.HoldDuration),
	)

	bookingWorkflow := workflow.NewBookingWorkflow(reservationService, mqConn, logger)
	paymentWorkflow := workflow.NewPaymentWorkflow(reservationService, logger)
	expiryWorkflow := workflow.NewExpiryWorkflow(reservationService, logger)

	return &App{
		Config:             cfg,
		DB:                 db,
		Cache:              redisCache,
		Logger:             logger,
		MQConn:             mqConn,
		ShowingRepo:        showingRepo,
		ReservationRepo:    reservationRepo,
		PromotionRepo:      promotionRepo,
		SlotService:        slotService,
		PricingService:     pricingService,
		PromotionService:   promotionService,
		OccupancyService:   occupancyService,
		ReservationService: reservationService,
		BookingWorkflow:    bookingWorkflow,
		PaymentWorkflow:    paymentWorkflow,
		ExpiryWorkflow:     expiryWorkflow,
	}, nil
}

func (app *App) Init() error {
	if err := app.DB.AutoMigrate(
		&model.Room{},
		&model.Seat{},
		&model.Movie{},
		&model.Showing{},
		&model.Reservation{},
		&model.ReservationSeat{},
		&model.ReservationItem{},
		&model.Promotion{},
		&model.PromotionCondition{},
		&model.Payment{},
	); err != nil {
		return err
	}

	// seed the usage counters so cap checks survive restarts
	promotions, err := app.PromotionRepo.ListAll()
	if err != nil {
		return err
	}
	usesByCode := make(map[string]int, len(promotions))
	for _, promo := range promotions {
		usesByCode[promo.Code] = promo.CurrentUses
	}
	if err := app.Cache.InitPromotionUsage(usesByCode); err != nil {
		return err
	}

	if err := mq.InitQueues(app.MQConn, app.Config.HoldDuration); err != nil {
		return err
	}

	if err := app.PaymentWorkflow.Start(app.MQConn); err != nil {
		return err
	}
	if err := app.ExpiryWorkflow.Start(app.MQConn); err != nil {
		return err
	}

	return nil
}

func (app *App) Close() error {
	sqlDB, err := app.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
