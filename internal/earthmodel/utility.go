package earthmodel

import (
	"fmt"
	"math"
)

const (
	// MaxDistSamples bounds the distance extent of a mini-table.
	MaxDistSamples = 7
	// MaxDepthSamples bounds the depth extent of a mini-table.
	MaxDepthSamples = 4
	// MinNumDistSamples is the fewest valid samples a hole fill or an
	// extrapolation may be based on.
	MinNumDistSamples = 3

	// MinDistanceSamples is the shortest distance axis the spline accepts.
	MinDistanceSamples = 2
)

// Result is the outcome of one interpolation: the value and derivatives
// with respect to the first (depth) and second (distance) model axes, and
// whether any sample had to be filled or extrapolated.
type Result struct {
	Derivatives
	Extrapolated bool
}

// Value is the interpolated model value.
func (r Result) Value() float64 { return r.Derivatives[0] }

// DDepth is the first derivative with respect to depth.
func (r Result) DDepth() float64 { return r.Derivatives[1] }

// D2Depth is the second derivative with respect to depth.
func (r Result) D2Depth() float64 { return r.Derivatives[2] }

// DDistance is the first derivative with respect to distance.
func (r Result) DDistance() float64 { return r.Derivatives[3] }

// DDepthDDistance is the mixed second derivative.
func (r Result) DDepthDDistance() float64 { return r.Derivatives[4] }

// Utility interpolates one earth-model table. It keeps references to the
// caller's axes and table, which must not be modified while the Utility is
// in use. A Utility is safe for concurrent use.
type Utility struct {
	depths      []float64
	distances   []float64
	table       [][]float64
	extrapolate bool
	hole        hole
	spline      BicubicSpline
}

// NewUtility validates the model and returns a Utility for it. depths and
// distances must be strictly increasing and table must be indexed
// [depth][distance]. Missing samples are NaN. When extrapolate is false,
// mini-tables are passed to the spline exactly as extracted, NaN included.
func NewUtility(depths, distances []float64, table [][]float64, extrapolate bool) (*Utility, error) {
	if len(depths) == 0 {
		return nil, fmt.Errorf("%w: depth axis is empty", ErrValidation)
	}
	if len(distances) < MinDistanceSamples {
		return nil, fmt.Errorf("%w: distance axis has %d samples, need at least %d", ErrValidation, len(distances), MinDistanceSamples)
	}
	if err := checkAxis("depth", depths); err != nil {
		return nil, err
	}
	if err := checkAxis("distance", distances); err != nil {
		return nil, err
	}
	if len(table) != len(depths) {
		return nil, fmt.Errorf("%w: table has %d rows for %d depths", ErrValidation, len(table), len(depths))
	}
	for i, row := range table {
		if len(row) != len(distances) {
			return nil, fmt.Errorf("%w: table row %d has %d samples for %d distances", ErrValidation, i, len(row), len(distances))
		}
	}

	return &Utility{
		depths:      depths,
		distances:   distances,
		table:       table,
		extrapolate: extrapolate,
		hole:        findHole(distances, table[0]),
	}, nil
}

func checkAxis(name string, axis []float64) error {
	for i, v := range axis {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s axis sample %d is not finite", ErrValidation, name, i)
		}
		if i > 0 && v <= axis[i-1] {
			return fmt.Errorf("%w: %s axis is not strictly increasing at sample %d", ErrValidation, name, i)
		}
	}
	return nil
}

// Interpolate estimates the model value and its derivatives at (depth,
// distance). Both coordinates must be finite.
func (u *Utility) Interpolate(depth, distance float64) (Result, error) {
	if !isFinite(depth) || !isFinite(distance) {
		return Result{}, fmt.Errorf("%w: query depth %g, distance %g is not finite", ErrValidation, depth, distance)
	}

	r := newResolution(u, depth, distance)

	mt, err := u.buildMiniTable(r)
	if err != nil {
		return Result{}, err
	}

	fn, err := u.spline.FunctionAndDerivatives(mt.depths, mt.distances, mt.values)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Derivatives:  fn(depth, distance),
		Extrapolated: r.extrapolated,
	}, nil
}

// hole is the first run of missing samples in a table row, bounded by the
// last valid distance before it and the first valid distance after it.
type hole struct {
	start, end float64
	found      bool
}

// findHole scans row once from the start. A run of missing samples that
// extends to the end of the row is not a hole.
func findHole(distances, row []float64) hole {
	var h hole
	inRun := false
	for i := 1; i < len(distances); i++ {
		switch {
		case valid(row[i-1]) && invalid(row[i]):
			h.start = distances[i-1]
			inRun = true
		case inRun && valid(row[i]):
			h.end = distances[i]
			h.found = true
			return h
		}
	}
	return hole{}
}

func (h hole) contains(distance float64) bool {
	return h.found && distance > h.start && distance < h.end
}

func valid(v float64) bool   { return !math.IsNaN(v) }
func invalid(v float64) bool { return math.IsNaN(v) }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
