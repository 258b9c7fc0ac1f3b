package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/couchcryptid/feature-prediction-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockExtractor returns its events as one batch, then blocks until the
// context is cancelled to simulate an idle topic.
type mockExtractor struct {
	events []domain.RawEvent
	calls  atomic.Int64
	err    error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if m.calls.Add(1) == 1 {
		if m.err != nil {
			return nil, m.err
		}
		if len(m.events) > 0 {
			return m.events[:min(batchSize, len(m.events))], nil
		}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKeys map[string]bool
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.failKeys[string(raw.Key)] {
		return domain.OutputEvent{}, errors.New("no table for phase")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

type commitRecorder struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitRecorder) commitFor(offset int64) func(context.Context) error {
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.offsets = append(c.offsets, offset)
		return nil
	}
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	commits := &commitRecorder{}
	events := []domain.RawEvent{
		makeRawEvent("req-1", 0, commits),
		makeRawEvent("req-2", 1, commits),
		makeRawEvent("req-3", 2, commits),
	}

	ext := &mockExtractor{events: events}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10, 4)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 3)
	for i, out := range ldr.loaded {
		assert.Equal(t, events[i].Key, out.Key, "output order follows input order")
	}
	assert.ElementsMatch(t, []int64{0, 1, 2}, commits.offsets)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrors(t *testing.T) {
	commits := &commitRecorder{}
	events := []domain.RawEvent{
		makeRawEvent("req-ok", 0, commits),
		makeRawEvent("req-bad", 1, commits),
	}

	ldr := &mockLoader{}
	metrics := newTestMetrics()
	tfm := &mockTransformer{failKeys: map[string]bool{"req-bad": true}}

	p := pipeline.New(&mockExtractor{events: events}, tfm, ldr, discardLogger(), metrics, 10, 2)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, []byte("req-ok"), ldr.loaded[0].Key)
	assert.ElementsMatch(t, []int64{0, 1}, commits.offsets, "failed requests are committed too")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_AllTransformsFail(t *testing.T) {
	events := []domain.RawEvent{makeRawEvent("req-bad", 0, nil)}
	tfm := &mockTransformer{failKeys: map[string]bool{"req-bad": true}}
	ldr := &mockLoader{}

	p := pipeline.New(&mockExtractor{events: events}, tfm, ldr, discardLogger(), newTestMetrics(), 10, 1)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadErrorSkipsCommit(t *testing.T) {
	commits := &commitRecorder{}
	events := []domain.RawEvent{makeRawEvent("req-1", 7, commits)}
	ldr := &mockLoader{err: errors.New("broker unavailable")}

	p := pipeline.New(&mockExtractor{events: events}, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10, 1)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, commits.offsets)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("fetch failed")}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 10, 1)

	runFor(t, p, 100*time.Millisecond)

	// The first extract fails; the next one waits out the 200ms backoff.
	assert.Equal(t, int64(1), ext.calls.Load())
}

func TestPipeline_Run_WorkerLimit(t *testing.T) {
	events := make([]domain.RawEvent, 8)
	for i := range events {
		events[i] = makeRawEvent("req", int64(i), nil)
	}
	tfm := &mockTransformer{delay: 20 * time.Millisecond}
	ldr := &mockLoader{}

	p := pipeline.New(&mockExtractor{events: events}, tfm, ldr, discardLogger(), newTestMetrics(), 8, 2)
	runFor(t, p, 500*time.Millisecond)

	assert.Len(t, ldr.loaded, 8)
	assert.LessOrEqual(t, tfm.maxInFlight.Load(), int32(2))
}

func TestPipeline_BatchSizeBoundsExtract(t *testing.T) {
	events := make([]domain.RawEvent, 5)
	for i := range events {
		events[i] = makeRawEvent("req", int64(i), nil)
	}
	ldr := &mockLoader{}

	p := pipeline.New(&mockExtractor{events: events}, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 3, 1)
	runFor(t, p, 200*time.Millisecond)

	assert.Len(t, ldr.loaded, 3)
}

// --- transformer ---

type stubPredictor struct {
	err error
}

func (s stubPredictor) Predict(_ context.Context, req domain.PredictionRequest) (domain.FeaturePrediction, error) {
	if s.err != nil {
		return domain.FeaturePrediction{}, s.err
	}
	p := domain.NewFeaturePrediction(req)
	p.DistanceDeg = 3
	p.BaselineTravelTime = 52
	p.TravelTime = 52
	p.ArrivalTime = req.Source.Time.Add(52 * time.Second)
	p.Components = []domain.Component{{Type: domain.BaselinePrediction, Value: 52}}
	return p, nil
}

func TestPredictionTransformer_Transform(t *testing.T) {
	fixed := time.Date(2024, time.April, 26, 15, 11, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	tfm := pipeline.NewTransformer(stubPredictor{}, discardLogger())
	out, err := tfm.Transform(context.Background(), makeRawEvent("req-42", 0, nil))
	require.NoError(t, err)

	assert.Equal(t, []byte("req-42"), out.Key)
	assert.Equal(t, "P", out.Headers["phase"])

	var got domain.FeaturePrediction
	require.NoError(t, json.Unmarshal(out.Value, &got))

	want := domain.FeaturePrediction{
		RequestID:          "req-42",
		PredictionType:     domain.ArrivalTime,
		Phase:              "P",
		EarthModel:         "ak135",
		Station:            "ASAR",
		DepthKm:            35,
		DistanceDeg:        3,
		BaselineTravelTime: 52,
		TravelTime:         52,
		ArrivalTime:        time.Date(2024, time.April, 26, 15, 10, 52, 0, time.UTC),
		Components:         []domain.Component{{Type: domain.BaselinePrediction, Value: 52}},
		ProcessedAt:        fixed,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prediction mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictionTransformer_Errors(t *testing.T) {
	t.Run("invalid request", func(t *testing.T) {
		tfm := pipeline.NewTransformer(stubPredictor{}, discardLogger())
		_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
		require.Error(t, err)
	})

	t.Run("predictor error", func(t *testing.T) {
		boom := errors.New("lookup table not found")
		tfm := pipeline.NewTransformer(stubPredictor{err: boom}, discardLogger())
		_, err := tfm.Transform(context.Background(), makeRawEvent("req-1", 0, nil))
		require.ErrorIs(t, err, boom)
	})
}

// --- helpers ---

func makeRawEvent(id string, offset int64, commits *commitRecorder) domain.RawEvent {
	req := domain.PredictionRequest{
		ID:             id,
		PredictionType: domain.ArrivalTime,
		Phase:          "P",
		EarthModel:     "ak135",
		Source:         domain.EventLocation{Latitude: 0, Longitude: 0, DepthKm: 35, Time: time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)},
		Receiver:       domain.ReceiverLocation{Station: "ASAR", Latitude: 0, Longitude: 3},
	}
	data, _ := json.Marshal(req)

	raw := domain.RawEvent{
		Key:       []byte(id),
		Value:     data,
		Topic:     "prediction-requests",
		Offset:    offset,
		Timestamp: time.Date(2024, time.April, 26, 15, 10, 1, 0, time.UTC),
	}
	if commits != nil {
		raw.Commit = commits.commitFor(offset)
	}
	return raw
}
