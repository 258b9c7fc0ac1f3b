package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidRequest reports a prediction request that cannot be served.
var ErrInvalidRequest = errors.New("invalid prediction request")

// ParsePredictionRequest deserializes and validates a RawEvent's value.
// Phase and model names are trimmed, the prediction type defaults to
// ARRIVAL_TIME, and a zero origin time takes the message timestamp.
func ParsePredictionRequest(raw RawEvent) (PredictionRequest, error) {
	var req PredictionRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return PredictionRequest{}, fmt.Errorf("parse prediction request: %w", err)
	}

	req = NormalizeRequest(req)
	if req.Source.Time.IsZero() {
		req.Source.Time = raw.Timestamp.UTC()
	}
	if req.ID == "" {
		req.ID = generateID(req)
	}

	if err := ValidateRequest(req); err != nil {
		return PredictionRequest{}, err
	}
	return req, nil
}

// NormalizeRequest trims identifiers and fills the default prediction type.
func NormalizeRequest(req PredictionRequest) PredictionRequest {
	req.ID = strings.TrimSpace(req.ID)
	req.Phase = strings.TrimSpace(req.Phase)
	req.EarthModel = strings.ToLower(strings.TrimSpace(req.EarthModel))
	req.Receiver.Station = strings.ToUpper(strings.TrimSpace(req.Receiver.Station))
	if req.PredictionType == "" {
		req.PredictionType = ArrivalTime
	}
	return req
}

// ValidateRequest checks the fields every predictor relies on.
func ValidateRequest(req PredictionRequest) error {
	if req.PredictionType != ArrivalTime {
		return fmt.Errorf("%w: unsupported prediction type %q", ErrInvalidRequest, req.PredictionType)
	}
	if req.Phase == "" {
		return fmt.Errorf("%w: phase is required", ErrInvalidRequest)
	}
	if req.EarthModel == "" {
		return fmt.Errorf("%w: earth_model is required", ErrInvalidRequest)
	}
	if err := checkCoordinate("source", req.Source.Latitude, req.Source.Longitude); err != nil {
		return err
	}
	if err := checkCoordinate("receiver", req.Receiver.Latitude, req.Receiver.Longitude); err != nil {
		return err
	}
	if !finite(req.Source.DepthKm) || req.Source.DepthKm < 0 {
		return fmt.Errorf("%w: source depth %g km", ErrInvalidRequest, req.Source.DepthKm)
	}
	if !finite(req.Receiver.ElevationKm) {
		return fmt.Errorf("%w: receiver elevation is not finite", ErrInvalidRequest)
	}
	for _, c := range req.Corrections {
		if c != ElevationCorrection && c != EllipticityCorrection {
			return fmt.Errorf("%w: unsupported correction %q", ErrInvalidRequest, c)
		}
	}
	return nil
}

func checkCoordinate(name string, lat, lon float64) error {
	if !finite(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: %s latitude %g out of range", ErrInvalidRequest, name, lat)
	}
	if !finite(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: %s longitude %g out of range", ErrInvalidRequest, name, lon)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// generateID produces a deterministic ID from the request's key fields, so
// reprocessing the same request yields the same prediction key.
func generateID(req PredictionRequest) string {
	input := fmt.Sprintf("%s|%s|%s|%.4f|%.4f|%.3f|%s|%.4f|%.4f",
		req.EarthModel, req.Phase, req.Receiver.Station,
		req.Source.Latitude, req.Source.Longitude, req.Source.DepthKm,
		req.Source.Time.UTC().Format(time.RFC3339Nano),
		req.Receiver.Latitude, req.Receiver.Longitude)
	hash := sha256.Sum256([]byte(input))
	return "req-" + hex.EncodeToString(hash[:8])
}

// NewFeaturePrediction starts a prediction for req, copying its identity
// and stamping ProcessedAt.
func NewFeaturePrediction(req PredictionRequest) FeaturePrediction {
	return FeaturePrediction{
		RequestID:      req.ID,
		PredictionType: req.PredictionType,
		Phase:          req.Phase,
		EarthModel:     req.EarthModel,
		Station:        req.Receiver.Station,
		DepthKm:        req.Source.DepthKm,
		ProcessedAt:    clock.Now().UTC(),
	}
}

// SerializePrediction marshals a prediction into an OutputEvent keyed by
// request ID.
func SerializePrediction(p FeaturePrediction) (OutputEvent, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize feature prediction: %w", err)
	}
	return OutputEvent{
		Key:   []byte(p.RequestID),
		Value: data,
		Headers: map[string]string{
			"prediction_type": string(p.PredictionType),
			"phase":           p.Phase,
			"processed_at":    p.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
