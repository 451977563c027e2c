package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/config"
	"github.com/tamthien006/vexemphim/internal/app"
	"github.com/tamthien006/vexemphim/internal/cache"
	"github.com/tamthien006/vexemphim/internal/handler"
	"github.com/tamthien006/vexemphim/internal/logger"
	"github.com/tamthien006/vexemphim/internal/mq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, false)
	defer log.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	redisCache, err := cache.NewRedisCache(cfg.CacheURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	mqConn, err := mq.NewMQConn(cfg.MQURL)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer mqConn.Close()

	application, err := app.New(cfg, db, redisCache, mqConn, log)
	if err != nil {
		log.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()

	if err := application.Init(); err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}

	r := gin.Default()
	handler.NewBookingHandler(application).Register(r)

	log.Info("server starting", zap.String("addr", cfg.Addr))
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
