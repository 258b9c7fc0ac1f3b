package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Prediction configuration.
	LookupTableDir        string
	ExtrapolateGridpoints bool
	UtilityCacheSize      int
	PredictionWorkers     int

	// Medium velocities (km/s) beneath the receiver for elevation
	// corrections, keyed by phase family.
	ElevationVelocityP float64
	ElevationVelocityS float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	extrapolate, err := strconv.ParseBool(sharedcfg.EnvOrDefault("EXTRAPOLATE_GRIDPOINTS", "true"))
	if err != nil {
		return nil, errors.New("invalid EXTRAPOLATE_GRIDPOINTS")
	}

	workers, err := strconv.Atoi(sharedcfg.EnvOrDefault("PREDICTION_WORKERS", "4"))
	if err != nil || workers <= 0 {
		return nil, errors.New("invalid PREDICTION_WORKERS: must be a positive integer")
	}

	velocityP, err := parseVelocity("ELEVATION_VELOCITY_P", "5.8")
	if err != nil {
		return nil, err
	}
	velocityS, err := parseVelocity("ELEVATION_VELOCITY_S", "3.46")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "prediction-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "feature-predictions"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "feature-prediction-service"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		LookupTableDir:        sharedcfg.EnvOrDefault("LOOKUP_TABLE_DIR", "data/tables"),
		ExtrapolateGridpoints: extrapolate,
		UtilityCacheSize:      parseUtilityCacheSize(),
		PredictionWorkers:     workers,
		ElevationVelocityP:    velocityP,
		ElevationVelocityS:    velocityS,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.LookupTableDir == "" {
		return nil, errors.New("LOOKUP_TABLE_DIR is required")
	}

	return cfg, nil
}

func parseVelocity(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive velocity in km/s", key)
	}
	return v, nil
}

func parseUtilityCacheSize() int {
	if s := os.Getenv("UTILITY_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
