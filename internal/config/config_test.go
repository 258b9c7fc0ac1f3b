package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "prediction-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "feature-predictions", cfg.KafkaSinkTopic)
	assert.Equal(t, "feature-prediction-service", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "data/tables", cfg.LookupTableDir)
	assert.True(t, cfg.ExtrapolateGridpoints)
	assert.Equal(t, 64, cfg.UtilityCacheSize)
	assert.Equal(t, 4, cfg.PredictionWorkers)
	assert.InDelta(t, 5.8, cfg.ElevationVelocityP, 1e-12)
	assert.InDelta(t, 3.46, cfg.ElevationVelocityS, 1e-12)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("LOOKUP_TABLE_DIR", "/srv/tables")
	t.Setenv("EXTRAPOLATE_GRIDPOINTS", "false")
	t.Setenv("UTILITY_CACHE_SIZE", "8")
	t.Setenv("PREDICTION_WORKERS", "16")
	t.Setenv("ELEVATION_VELOCITY_P", "6.1")
	t.Setenv("ELEVATION_VELOCITY_S", "3.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "/srv/tables", cfg.LookupTableDir)
	assert.False(t, cfg.ExtrapolateGridpoints)
	assert.Equal(t, 8, cfg.UtilityCacheSize)
	assert.Equal(t, 16, cfg.PredictionWorkers)
	assert.InDelta(t, 6.1, cfg.ElevationVelocityP, 1e-12)
	assert.InDelta(t, 3.5, cfg.ElevationVelocityS, 1e-12)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidExtrapolate(t *testing.T) {
	t.Setenv("EXTRAPOLATE_GRIDPOINTS", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXTRAPOLATE_GRIDPOINTS")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Setenv("PREDICTION_WORKERS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PREDICTION_WORKERS")
}

func TestLoad_InvalidVelocity(t *testing.T) {
	t.Setenv("ELEVATION_VELOCITY_S", "-3")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ELEVATION_VELOCITY_S")
}

func TestLoad_InvalidCacheSizeFallsBack(t *testing.T) {
	t.Setenv("UTILITY_CACHE_SIZE", "lots")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.UtilityCacheSize)
}
