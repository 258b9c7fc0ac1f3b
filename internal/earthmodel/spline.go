package earthmodel

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// crossDerivativeStep is the y offset of the central difference used for
// d2f/dxdy.
const crossDerivativeStep = 1e-7

// Derivatives is the value and partial derivatives of a 2-D function at a
// point: f, df/dx, d2f/dx2, df/dy and d2f/dxdy.
type Derivatives [5]float64

// SplineFunc evaluates a bicubic spline surface at (x, y).
type SplineFunc func(x, y float64) Derivatives

// BicubicSpline interpolates a fully populated grid with natural cubic
// splines along each axis, after "splin2" in Press et al., Numerical
// Recipes.
type BicubicSpline struct{}

// FunctionAndDerivatives returns a function evaluating the surface defined
// by data[i][j] = f(x[i], y[j]). The inputs are copied, so later changes
// by the caller do not affect the returned function.
func (BicubicSpline) FunctionAndDerivatives(x, y []float64, data [][]float64) (SplineFunc, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("%w: empty spline axis", ErrValidation)
	}
	if len(data) != len(x) {
		return nil, fmt.Errorf("%w: %d grid rows for %d x samples", ErrValidation, len(data), len(x))
	}

	xGrid := slices.Clone(x)
	yGrid := slices.Clone(y)
	values := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(y) {
			return nil, fmt.Errorf("%w: grid row %d has %d samples for %d y samples", ErrValidation, i, len(row), len(y))
		}
		values[i] = slices.Clone(row)
	}
	transposed := transposeMatrix(values)

	return func(xq, yq float64) Derivatives {
		alongX := interpolate(xGrid, yGrid, values, newBracket(xq, xGrid), newBracket(yq, yGrid))
		alongY := interpolate(yGrid, xGrid, transposed, newBracket(yq, yGrid), newBracket(xq, xGrid))

		return Derivatives{
			alongX[0],
			alongX[1],
			alongX[2],
			alongY[1],
			crossDerivative(xGrid, yGrid, values, xq, yq),
		}
	}, nil
}

// interpolate returns the value, first and second derivative along the x
// axis at the bracketed location.
func interpolate(xAxis, yAxis []float64, values [][]float64, xb, yb bracket) [3]float64 {
	atY := make([]float64, len(xAxis))
	d2y := make([]float64, len(yAxis))
	for j := range xAxis {
		naturalSpline(yAxis, values[j], d2y)
		atY[j] = splineValue(yb, values[j], d2y)
	}

	d2x := make([]float64, len(xAxis))
	naturalSpline(xAxis, atY, d2x)

	return [3]float64{
		splineValue(xb, atY, d2x),
		splineDerivative(xb, atY, d2x),
		splineSecondDerivative(xb, d2x),
	}
}

// naturalSpline fills y2 with the second derivatives of the cubic spline
// through (x, y) whose second derivative is zero at both ends.
func naturalSpline(x, y, y2 []float64) {
	n := len(x)
	u := make([]float64, n)
	y2[0] = 0

	for i := 1; i < n-1; i++ {
		sig := (x[i] - x[i-1]) / (x[i+1] - x[i-1])
		p := sig*y2[i-1] + 2.0
		y2[i] = (sig - 1.0) / p
		u[i] = (y[i+1]-y[i])/(x[i+1]-x[i]) - (y[i]-y[i-1])/(x[i]-x[i-1])
		u[i] = (6.0*u[i]/(x[i+1]-x[i-1]) - sig*u[i-1]) / p
	}

	y2[n-1] = 0
	for k := n - 2; k >= 0; k-- {
		y2[k] = y2[k]*y2[k+1] + u[k]
	}
}

func splineValue(br bracket, v, d2v []float64) float64 {
	a, b := br.a, br.b
	return a*v[br.klo] + b*v[br.khi] +
		((a*a*a-a)*d2v[br.klo]+(b*b*b-b)*d2v[br.khi])*(br.h*br.h)/6.0
}

func splineDerivative(br bracket, v, d2v []float64) float64 {
	if br.degenerate() {
		return 0
	}
	a, b, h := br.a, br.b, br.h
	return (v[br.khi]-v[br.klo])/h -
		((3.0*a*a-1.0)*h*d2v[br.klo])/6.0 +
		((3.0*b*b-1.0)*h*d2v[br.khi])/6.0
}

func splineSecondDerivative(br bracket, d2v []float64) float64 {
	return br.a*d2v[br.klo] + br.b*d2v[br.khi]
}

func crossDerivative(xGrid, yGrid []float64, values [][]float64, x, y float64) float64 {
	xb := newBracket(x, xGrid)
	upper := interpolate(xGrid, yGrid, values, xb, newBracket(y+crossDerivativeStep, yGrid))[1]
	lower := interpolate(xGrid, yGrid, values, xb, newBracket(y-crossDerivativeStep, yGrid))[1]
	return (upper - lower) / (2 * crossDerivativeStep)
}

// transposeMatrix returns the transpose of a rectangular matrix.
func transposeMatrix(m [][]float64) [][]float64 {
	if len(m) == 0 || len(m[0]) == 0 {
		return [][]float64{}
	}

	rows, cols := len(m), len(m[0])
	dense := mat.NewDense(rows, cols, nil)
	for i, row := range m {
		dense.SetRow(i, row)
	}

	t := mat.DenseCopyOf(dense.T())
	out := make([][]float64, cols)
	for j := range out {
		out[j] = mat.Row(nil, j, t)
	}
	return out
}
