package predictor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablesDir = "../lookuptable/testdata/tables"

var originTime = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVelocities() Velocities { return Velocities{P: 5.8, S: 3.46} }

func newTestPredictor(t *testing.T, extrapolate bool) (*Predictor, *observability.Metrics) {
	t.Helper()
	reg, err := lookuptable.LoadRegistry(context.Background(), tablesDir)
	require.NoError(t, err)

	m := observability.NewMetricsForTesting()
	p := New(reg, Options{Extrapolate: extrapolate, CacheSize: 8, Velocities: testVelocities()}, discardLogger(), m)
	return p, m
}

// equatorRequest places source and receiver on the equator so the angular
// distance equals the longitude difference.
func equatorRequest(phase string, depthKm, distanceDeg float64) domain.PredictionRequest {
	return domain.PredictionRequest{
		ID:             "req-test",
		PredictionType: domain.ArrivalTime,
		Phase:          phase,
		EarthModel:     "ak135",
		Source:         domain.EventLocation{DepthKm: depthKm, Time: originTime},
		Receiver:       domain.ReceiverLocation{Station: "TEST", Longitude: distanceDeg},
	}
}

// travelTimeP is the analytic surface sampled by the ak135 P test table.
func travelTimeP(depth, distance float64) float64 {
	return 13.5*distance - 0.02*distance*distance + 5.5*math.Sqrt(1+depth/10)
}

func TestPredict_Baseline(t *testing.T) {
	p, m := newTestPredictor(t, true)

	got, err := p.Predict(context.Background(), equatorRequest("P", 35, 3))
	require.NoError(t, err)

	want := travelTimeP(35, 3)
	assert.InDelta(t, 3.0, got.DistanceDeg, 1e-9)
	assert.InDelta(t, want, got.BaselineTravelTime, 1e-6)
	assert.Equal(t, got.BaselineTravelTime, got.TravelTime)
	assert.InDelta(t, 13.38, got.Derivatives.DDistance, 0.05)
	assert.Greater(t, got.Derivatives.DDepth, 0.0)
	assert.False(t, got.Extrapolated)
	assert.Equal(t, originTime.Add(seconds(got.TravelTime)), got.ArrivalTime)

	require.Len(t, got.Components, 1)
	assert.Equal(t, domain.BaselinePrediction, got.Components[0].Type)
	assert.Equal(t, got.BaselineTravelTime, got.Components[0].Value)

	require.NotNil(t, got.ModelingError)
	assert.InDelta(t, 1.1, *got.ModelingError, 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("P", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PredictionDuration))
}

func TestPredict_ElevationCorrection(t *testing.T) {
	p, _ := newTestPredictor(t, true)

	req := equatorRequest("P", 35, 3)
	req.Receiver.ElevationKm = 0.5
	req.Corrections = []domain.ComponentType{domain.ElevationCorrection}

	got, err := p.Predict(context.Background(), req)
	require.NoError(t, err)

	want, err := elevationCorrection(0.5, 5.8, got.Derivatives.DDistance)
	require.NoError(t, err)
	assert.Greater(t, want, 0.0)

	require.Len(t, got.Components, 2)
	assert.Equal(t, domain.ElevationCorrection, got.Components[1].Type)
	assert.InDelta(t, want, got.Components[1].Value, 1e-12)
	assert.InDelta(t, got.BaselineTravelTime+want, got.TravelTime, 1e-12)
	assert.Equal(t, originTime.Add(seconds(got.TravelTime)), got.ArrivalTime)
}

func TestPredict_EllipticityCorrectionOmitted(t *testing.T) {
	reg, err := lookuptable.LoadRegistry(context.Background(), tablesDir)
	require.NoError(t, err)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	p := New(reg, Options{Extrapolate: true, CacheSize: 8, Velocities: testVelocities()}, logger, observability.NewMetricsForTesting())

	req := equatorRequest("P", 35, 3)
	req.Corrections = []domain.ComponentType{domain.EllipticityCorrection}

	got, err := p.Predict(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, got.Components, 1)
	assert.Equal(t, domain.BaselinePrediction, got.Components[0].Type)
	assert.Equal(t, got.BaselineTravelTime, got.TravelTime)
	assert.Contains(t, logs.String(), "ELLIPTICITY_CORRECTION")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestPredict_Hole(t *testing.T) {
	t.Run("extrapolated", func(t *testing.T) {
		p, m := newTestPredictor(t, true)

		got, err := p.Predict(context.Background(), equatorRequest("S", 35, 5.5))
		require.NoError(t, err)

		assert.True(t, got.Extrapolated)
		assert.True(t, got.Components[0].Extrapolated)
		assert.InDelta(t, 1.73*travelTimeP(35, 5.5), got.TravelTime, 0.25)
		assert.Nil(t, got.ModelingError)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("S", "extrapolated")))
	})

	t.Run("without extrapolation", func(t *testing.T) {
		p, m := newTestPredictor(t, false)

		_, err := p.Predict(context.Background(), equatorRequest("S", 35, 5.5))
		require.ErrorIs(t, err, ErrNoPrediction)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("S", "error")))
	})
}

func TestPredict_Errors(t *testing.T) {
	p, _ := newTestPredictor(t, true)

	t.Run("unknown table", func(t *testing.T) {
		req := equatorRequest("PKiKP", 35, 3)
		_, err := p.Predict(context.Background(), req)
		require.ErrorIs(t, err, lookuptable.ErrTableNotFound)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Predict(ctx, equatorRequest("P", 35, 3))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("evanescent ray", func(t *testing.T) {
		fast := New(p.tables, Options{Extrapolate: true, CacheSize: 4, Velocities: Velocities{P: 10, S: 10}}, discardLogger(), observability.NewMetricsForTesting())
		req := equatorRequest("P", 35, 3)
		req.Receiver.ElevationKm = 1
		req.Corrections = []domain.ComponentType{domain.ElevationCorrection}

		_, err := fast.Predict(context.Background(), req)
		require.ErrorIs(t, err, ErrEvanescent)
	})
}

func TestPredict_CachesUtilities(t *testing.T) {
	tbl := &lookuptable.Table{
		Model: "flat",
		Phase: "P",
		TravelTime: lookuptable.Grid{
			DepthsKm:     []float64{0, 10, 20},
			DistancesDeg: []float64{0, 1, 2, 3},
			Values:       lookuptable.Values{{0, 10, 20, 30}, {1, 11, 21, 31}, {2, 12, 22, 32}},
		},
	}
	reg, err := lookuptable.NewRegistry(tbl)
	require.NoError(t, err)

	m := observability.NewMetricsForTesting()
	p := New(reg, Options{Extrapolate: true, CacheSize: 4, Velocities: testVelocities()}, discardLogger(), m)

	req := equatorRequest("P", 5, 1.5)
	req.EarthModel = "flat"
	for range 3 {
		got, err := p.Predict(context.Background(), req)
		require.NoError(t, err)
		assert.InDelta(t, 15.5, got.TravelTime, 1e-6)
		assert.InDelta(t, 10.0, got.Derivatives.DDistance, 1e-6)
		assert.InDelta(t, 0.1, got.Derivatives.DDepth, 1e-6)
		assert.Nil(t, got.ModelingError)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UtilityCache.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UtilityCache.WithLabelValues("hit")))
	assert.Equal(t, 1, p.cache.lru.len())
}
