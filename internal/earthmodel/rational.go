package earthmodel

import (
	"fmt"
	"math"
)

// rationalTiny keeps the initial tableau differences away from an exact
// zero when a sample value is zero.
const rationalTiny = 1e-99

// RationalInterpolate evaluates the diagonal rational function through
// (xs[i], ys[i]) at x using the Bulirsch-Stoer tableau. The abscissae need
// not be sorted. An x equal to one of the abscissae returns the matching
// ordinate exactly.
func RationalInterpolate(xs, ys []float64, x float64) (float64, error) {
	n := len(xs)
	if n != len(ys) {
		return math.NaN(), fmt.Errorf("%w: %d abscissae for %d ordinates", ErrValidation, n, len(ys))
	}
	if n == 0 {
		return math.NaN(), fmt.Errorf("%w: no samples to interpolate", ErrValidation)
	}

	c := make([]float64, n)
	d := make([]float64, n)
	ns := 0
	hh := math.Abs(x - xs[0])
	for i := range n {
		h := math.Abs(x - xs[i])
		if h == 0 {
			return ys[i], nil
		}
		if h < hh {
			ns = i
			hh = h
		}
		c[i] = ys[i]
		d[i] = ys[i] + rationalTiny
	}

	y := ys[ns]
	ns--
	for m := 1; m < n; m++ {
		for i := 0; i < n-m; i++ {
			w := c[i+1] - d[i]
			h := xs[i+m] - x
			t := (xs[i] - x) * d[i] / h
			dd := t - c[i+1]
			if dd == 0 {
				return math.NaN(), fmt.Errorf("%w: at x=%g", ErrDegeneratePole, x)
			}
			dd = w / dd
			d[i] = c[i+1] * dd
			c[i] = t * dd
		}

		var dy float64
		if 2*(ns+1) < n-m {
			dy = c[ns+1]
		} else {
			dy = d[ns]
			ns--
		}
		y += dy
	}
	return y, nil
}
