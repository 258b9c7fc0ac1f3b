// Command genmock writes synthetic travel-time lookup tables and matching
// prediction request and prediction fixtures. Tables sample a smooth
// analytic surface; the S table carries a band of missing samples so the
// fixtures exercise hole filling. Predictions are produced by the real
// predictor with a fixed clock, so the output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -table-dir data/tables \
//	  -requests-out data/mock/prediction_requests.json \
//	  -predictions-out data/mock/feature_predictions.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/floats"
)

var originTime = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

// phaseDef describes one synthetic phase table.
type phaseDef struct {
	phase   string
	scale   float64    // multiplies the P surface
	holeDeg [2]float64 // distances (exclusive) left missing; zero for none
}

var phaseDefs = []phaseDef{
	{phase: "P", scale: 1},
	{phase: "S", scale: 1.73, holeDeg: [2]float64{20, 24}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	tableDir := flag.String("table-dir", "", "output directory for lookup table JSON files")
	model := flag.String("model", "ak135", "earth model name")
	depthSamples := flag.Int("depth-samples", 8, "number of depth samples between 0 and 700 km")
	distSamples := flag.Int("distance-samples", 101, "number of distance samples between 0 and 100 deg")
	requestsOut := flag.String("requests-out", "", "output path for prediction request fixture")
	predictionsOut := flag.String("predictions-out", "", "output path for feature prediction fixture")
	flag.Parse()

	if *tableDir == "" || *requestsOut == "" || *predictionsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -table-dir, -requests-out, -predictions-out")
	}
	if *depthSamples < 1 || *distSamples < 2 {
		return fmt.Errorf("need at least 1 depth and 2 distance samples")
	}

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	depths := floats.Span(make([]float64, *depthSamples), 0, 700)
	if *depthSamples == 1 {
		depths = []float64{0}
	}
	distances := floats.Span(make([]float64, *distSamples), 0, 100)

	tables := make([]*lookuptable.Table, 0, len(phaseDefs))
	for _, def := range phaseDefs {
		t := buildTable(*model, def, depths, distances)
		path := filepath.Join(*tableDir, fmt.Sprintf("%s_%s.json", t.Model, t.Phase))
		if err := writeTable(path, t); err != nil {
			return fmt.Errorf("writing table %s: %w", t.Key(), err)
		}
		log.Printf("wrote table %s: %s (%d missing)", t.Key(), path, t.TravelTime.Missing())
		tables = append(tables, t)
	}

	reqs := buildRequests(*model)
	if err := writeJSON(*requestsOut, reqs); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s (%d requests)", *requestsOut, len(reqs))

	preds, err := predictAll(tables, reqs)
	if err != nil {
		return err
	}
	if err := writeJSON(*predictionsOut, preds); err != nil {
		return fmt.Errorf("writing prediction fixture: %w", err)
	}
	log.Printf("wrote prediction fixture: %s (%d predictions)", *predictionsOut, len(preds))

	printStats(preds)
	return nil
}

// travelTime is the synthetic P surface in seconds.
func travelTime(depthKm, distanceDeg float64) float64 {
	return 13.5*distanceDeg - 0.02*distanceDeg*distanceDeg + 5.5*math.Sqrt(1+depthKm/10)
}

// modelingError grows with distance and shrinks with depth.
func modelingError(depthKm, distanceDeg float64) float64 {
	return 1.1 + distanceDeg/400 - depthKm/7000
}

func buildTable(model string, def phaseDef, depths, distances []float64) *lookuptable.Table {
	values := make(lookuptable.Values, len(depths))
	for i, d := range depths {
		values[i] = make([]float64, len(distances))
		for j, x := range distances {
			if x > def.holeDeg[0] && x < def.holeDeg[1] {
				values[i][j] = math.NaN()
				continue
			}
			values[i][j] = round(def.scale * travelTime(d, x))
		}
	}

	meDepths := []float64{0, 100, 700}
	meDistances := []float64{0, 20, 180}
	meValues := make(lookuptable.Values, len(meDepths))
	for i, d := range meDepths {
		meValues[i] = make([]float64, len(meDistances))
		for j, x := range meDistances {
			meValues[i][j] = round(def.scale * modelingError(d, x))
		}
	}

	return &lookuptable.Table{
		Model: model,
		Phase: def.phase,
		Units: "seconds",
		TravelTime: lookuptable.Grid{
			DepthsKm:     depths,
			DistancesDeg: distances,
			Values:       values,
		},
		ModelingError: &lookuptable.Grid{
			DepthsKm:     meDepths,
			DistancesDeg: meDistances,
			Values:       meValues,
		},
	}
}

// buildRequests places receivers along the equator east of an equatorial
// source so each request's distance equals the receiver longitude.
func buildRequests(model string) []domain.PredictionRequest {
	var reqs []domain.PredictionRequest //nolint:prealloc // count depends on the loops below
	for _, def := range phaseDefs {
		for _, depth := range []float64{0, 35, 120, 410} {
			for dist := 5.0; dist < 100; dist += 7.5 {
				station := fmt.Sprintf("S%03.0f", dist*10)
				req := domain.PredictionRequest{
					PredictionType: domain.ArrivalTime,
					Phase:          def.phase,
					EarthModel:     model,
					Source:         domain.EventLocation{DepthKm: depth, Time: originTime},
					Receiver: domain.ReceiverLocation{
						Station:     station,
						Longitude:   dist,
						ElevationKm: 0.25,
					},
					Corrections: []domain.ComponentType{domain.ElevationCorrection},
				}
				req = domain.NormalizeRequest(req)
				req.ID = fmt.Sprintf("req-%s-%s-%03.0f", def.phase, station, depth)
				reqs = append(reqs, req)
			}
		}
	}
	return reqs
}

func predictAll(tables []*lookuptable.Table, reqs []domain.PredictionRequest) ([]domain.FeaturePrediction, error) {
	reg, err := lookuptable.NewRegistry(tables...)
	if err != nil {
		return nil, err
	}
	pred := predictor.New(reg, predictor.Options{
		Extrapolate: true,
		CacheSize:   len(tables) * 2,
		Velocities:  predictor.Velocities{P: 5.8, S: 3.46},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	preds := make([]domain.FeaturePrediction, 0, len(reqs))
	for _, req := range reqs {
		p, err := pred.Predict(context.Background(), req)
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", req.ID, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func writeTable(path string, t *lookuptable.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := lookuptable.Encode(&buf, t); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(preds []domain.FeaturePrediction) {
	byPhase := map[string]int{}
	extrapolated := 0
	minTT, maxTT := math.Inf(1), math.Inf(-1)
	for _, p := range preds {
		byPhase[p.Phase]++
		if p.Extrapolated {
			extrapolated++
		}
		minTT = math.Min(minTT, p.TravelTime)
		maxTT = math.Max(maxTT, p.TravelTime)
	}

	fmt.Println("\n=== Prediction Stats ===")
	for _, def := range phaseDefs {
		fmt.Printf("  %-4s %d\n", def.phase, byPhase[def.phase])
	}
	fmt.Printf("  extrapolated: %d\n", extrapolated)
	if len(preds) > 0 {
		fmt.Printf("  travel time: %.3f s .. %.3f s\n", minTT, maxTT)
	}
}
