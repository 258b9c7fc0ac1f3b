// Command validate performs integrity checks on a directory of travel-time
// lookup tables and, optionally, a fixture of prediction requests. It
// verifies table structure, sample coverage, that the interpolator
// reproduces every grid sample, and that travel times grow with distance.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -table-dir data/tables \
//	  -requests data/mock/prediction_requests.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
)

// nodeTolerance is the largest accepted difference (s) between a grid
// sample and the interpolated value at its node.
const nodeTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	tableDir := flag.String("table-dir", "", "directory containing lookup table JSON files")
	requests := flag.String("requests", "", "optional path to a JSON array of prediction requests")
	flag.Parse()

	if *tableDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*tableDir, *requests); code != 0 {
		os.Exit(code)
	}
}

func run(tableDir, requestsPath string) int {
	fmt.Println("=== Lookup Table Integrity Validation ===")
	fmt.Println()

	tables, err := lookuptable.LoadDir(context.Background(), tableDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load tables: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCoverage(tables),
		validateNodes(tables),
		validateMonotonic(tables),
	}

	var requests []domain.PredictionRequest
	if requestsPath != "" {
		requests, err = loadRequests(requestsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load requests: %v\n", err)
			return 1
		}
		phases = append(phases, validateRequests(tables, requests))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Tables: %d (%d samples, %d missing), requests: %d\n",
		len(tables), countSamples(tables), countMissing(tables), len(requests))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadRequests(path string) ([]domain.PredictionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reqs []domain.PredictionRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func countSamples(tables []*lookuptable.Table) int {
	n := 0
	for _, t := range tables {
		n += len(t.TravelTime.DepthsKm) * len(t.TravelTime.DistancesDeg)
	}
	return n
}

func countMissing(tables []*lookuptable.Table) int {
	n := 0
	for _, t := range tables {
		n += t.TravelTime.Missing()
	}
	return n
}

// ── Phase 1: Coverage ──
// Every depth row needs enough valid samples to fill its own holes.

func validateCoverage(tables []*lookuptable.Table) *phase {
	p := &phase{name: "Phase 1: Coverage (valid samples per row)"}

	seen := map[lookuptable.Key]string{}
	for _, t := range tables {
		if prev, ok := seen[t.Key()]; ok {
			p.errorf("%s: duplicate table in %s and %s", t.Key(), prev, t.Source)
		}
		seen[t.Key()] = t.Source

		g := t.TravelTime
		for i, row := range g.Values {
			valid := 0
			for _, v := range row {
				if !math.IsNaN(v) {
					valid++
				}
			}
			if valid < earthmodel.MinNumDistSamples {
				p.errorf("%s depth %g km: %d valid samples, need at least %d",
					t.Key(), g.DepthsKm[i], valid, earthmodel.MinNumDistSamples)
			}
		}
	}
	return p
}

// ── Phase 2: Node Reproduction ──
// Interpolating at a grid node must return the stored sample.

func validateNodes(tables []*lookuptable.Table) *phase {
	p := &phase{name: "Phase 2: Node Reproduction (interpolator)"}

	for _, t := range tables {
		g := t.TravelTime
		u, err := earthmodel.NewUtility(g.DepthsKm, g.DistancesDeg, g.Values, true)
		if err != nil {
			p.errorf("%s: %v", t.Key(), err)
			continue
		}
		for i, depth := range g.DepthsKm {
			for j, dist := range g.DistancesDeg {
				want := g.Values[i][j]
				if math.IsNaN(want) {
					continue
				}
				res, err := u.Interpolate(depth, dist)
				if err != nil {
					p.errorf("%s (%g km, %g deg): %v", t.Key(), depth, dist, err)
					continue
				}
				if math.Abs(res.Value()-want) > nodeTolerance {
					p.errorf("%s (%g km, %g deg): expected %g, got %g", t.Key(), depth, dist, want, res.Value())
				}
			}
		}
	}
	return p
}

// ── Phase 3: Monotonicity ──
// Travel time must not decrease with distance along a depth row.

func validateMonotonic(tables []*lookuptable.Table) *phase {
	p := &phase{name: "Phase 3: Monotonicity (travel time vs distance)"}

	for _, t := range tables {
		g := t.TravelTime
		for i, row := range g.Values {
			last := math.Inf(-1)
			for j, v := range row {
				if math.IsNaN(v) {
					continue
				}
				if v < last {
					p.errorf("%s depth %g km: travel time drops to %g at %g deg", t.Key(), g.DepthsKm[i], v, g.DistancesDeg[j])
				}
				last = v
			}
		}
	}
	return p
}

// ── Phase 4: Requests ──
// Every fixture request must produce a finite prediction.

func validateRequests(tables []*lookuptable.Table, reqs []domain.PredictionRequest) *phase {
	p := &phase{name: "Phase 4: Requests (fixture predictions)"}

	reg, err := lookuptable.NewRegistry(tables...)
	if err != nil {
		p.errorf("build registry: %v", err)
		return p
	}
	pred := predictor.New(reg, predictor.Options{
		Extrapolate: true,
		CacheSize:   len(tables) * 2,
		Velocities:  predictor.Velocities{P: 5.8, S: 3.46},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	for i, req := range reqs {
		data, err := json.Marshal(req)
		if err != nil {
			p.errorf("request %d: marshal: %v", i, err)
			continue
		}
		parsed, err := domain.ParsePredictionRequest(domain.RawEvent{Value: data})
		if err != nil {
			p.errorf("request %d (%s): %v", i, req.ID, err)
			continue
		}
		fp, err := pred.Predict(context.Background(), parsed)
		if err != nil {
			p.errorf("request %d (%s): %v", i, parsed.ID, err)
			continue
		}
		if fp.TravelTime <= 0 {
			p.errorf("request %d (%s): non-positive travel time %g", i, parsed.ID, fp.TravelTime)
		}
	}
	return p
}
