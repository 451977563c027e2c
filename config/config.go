package config

import (
	"os"
	"strconv"
	"time"

	"github.com/tamthien006/vexemphim/internal/util"
)

type Config struct {
	DatabaseDSN string
	Addr        string
	CacheURL    string
	MQURL       string
	LogLevel    string

	HoldDuration   time.Duration
	CleaningBuffer time.Duration
	OpeningHour    int
	ClosingHour    int
	SlotStep       time.Duration
}

func LoadConfig() (*Config, error) {
	if err := util.LoadEnv(); err != nil {
		return nil, err
	}
	return &Config{
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		Addr:        os.Getenv("ADDR"),
		CacheURL:    os.Getenv("CACHE_URL"),
		MQURL:       os.Getenv("RABBIT_MQ_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		HoldDuration:   envMinutes("HOLD_MINUTES", 10),
		CleaningBuffer: envMinutes("CLEANING_MINUTES", 15),
		OpeningHour:    envInt("OPENING_HOUR", 9),
		ClosingHour:    envInt("CLOSING_HOUR", 23),
		SlotStep:       envMinutes("SLOT_STEP_MINUTES", 15),
	}, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envMinutes(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Minute
}
