package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
)

// Predictor computes a feature prediction for a validated request.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.FeaturePrediction, error)
}

// PredictionTransformer implements Transformer: it decodes a request,
// predicts it and serializes the result.
type PredictionTransformer struct {
	predictor Predictor
	logger    *slog.Logger
}

// NewTransformer creates a PredictionTransformer backed by predictor.
func NewTransformer(predictor Predictor, logger *slog.Logger) *PredictionTransformer {
	return &PredictionTransformer{
		predictor: predictor,
		logger:    logger,
	}
}

func (t *PredictionTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParsePredictionRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	pred, err := t.predictor.Predict(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	if pred.Extrapolated {
		t.logger.Debug("prediction extrapolated",
			"request_id", req.ID,
			"phase", req.Phase,
			"depth_km", pred.DepthKm,
			"distance_deg", pred.DistanceDeg,
		)
	}

	return domain.SerializePrediction(pred)
}
