package domain

import (
	"context"
	"slices"
	"time"
)

// PredictionType names the feature a request asks for.
type PredictionType string

// ArrivalTime is the only feature currently predicted.
const ArrivalTime PredictionType = "ARRIVAL_TIME"

// ComponentType labels one contribution to a prediction.
type ComponentType string

const (
	BaselinePrediction    ComponentType = "BASELINE_PREDICTION"
	ElevationCorrection   ComponentType = "ELEVATION_CORRECTION"
	EllipticityCorrection ComponentType = "ELLIPTICITY_CORRECTION"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// EventLocation is the hypocenter and origin time of an event hypothesis.
type EventLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	DepthKm   float64   `json:"depth_km"`
	Time      time.Time `json:"time"`
}

// ReceiverLocation is a station position. Elevation is positive above sea
// level.
type ReceiverLocation struct {
	Station     string  `json:"station"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ElevationKm float64 `json:"elevation_km"`
}

// PredictionRequest asks for one feature of one phase at one receiver.
type PredictionRequest struct {
	ID             string           `json:"id"`
	PredictionType PredictionType   `json:"prediction_type"`
	Phase          string           `json:"phase"`
	EarthModel     string           `json:"earth_model"`
	Source         EventLocation    `json:"source"`
	Receiver       ReceiverLocation `json:"receiver"`
	Corrections    []ComponentType  `json:"corrections,omitempty"`
}

// Wants reports whether the request asks for correction c.
func (r PredictionRequest) Wants(c ComponentType) bool {
	return slices.Contains(r.Corrections, c)
}

// Derivatives are the partial derivatives of travel time with respect to
// source depth (s/km) and angular distance (s/deg).
type Derivatives struct {
	DDepth          float64 `json:"d_depth"`
	D2Depth         float64 `json:"d2_depth"`
	DDistance       float64 `json:"d_distance"`
	DDepthDDistance float64 `json:"d_depth_d_distance"`
}

// Component is one additive contribution to the predicted travel time.
type Component struct {
	Type         ComponentType `json:"type"`
	Value        float64       `json:"value"`
	Extrapolated bool          `json:"extrapolated"`
}

// FeaturePrediction is the domain-rich result of a prediction request.
type FeaturePrediction struct {
	RequestID      string         `json:"request_id"`
	PredictionType PredictionType `json:"prediction_type"`
	Phase          string         `json:"phase"`
	EarthModel     string         `json:"earth_model"`
	Station        string         `json:"station"`

	DepthKm     float64 `json:"depth_km"`
	DistanceDeg float64 `json:"distance_deg"`

	BaselineTravelTime float64     `json:"baseline_travel_time"`
	TravelTime         float64     `json:"travel_time"`
	ArrivalTime        time.Time   `json:"arrival_time"`
	Derivatives        Derivatives `json:"derivatives"`
	ModelingError      *float64    `json:"modeling_error,omitempty"`
	Components         []Component `json:"components"`
	Extrapolated       bool        `json:"extrapolated"`

	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
