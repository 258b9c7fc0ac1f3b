package earthmodel

// bracket holds the interval of a monotonically increasing axis that
// contains an interpolation location, with the spline weights a and b
// and the interval width h.
type bracket struct {
	klo, khi int
	a, b, h  float64
}

// newBracket bisects axis for x. Locations outside the axis bracket the
// first or last interval, which makes the spline formulas extrapolate.
// A single-sample axis produces a degenerate bracket with h == 0.
func newBracket(x float64, axis []float64) bracket {
	if len(axis) == 1 {
		return bracket{a: 1}
	}

	klo, khi := 0, len(axis)-1
	for khi-klo > 1 {
		k := (khi + klo) >> 1
		if axis[k] > x {
			khi = k
		} else {
			klo = k
		}
	}

	h := axis[khi] - axis[klo]
	return bracket{
		klo: klo,
		khi: khi,
		a:   (axis[khi] - x) / h,
		b:   (x - axis[klo]) / h,
		h:   h,
	}
}

func (br bracket) degenerate() bool { return br.h == 0 }

// hunt returns b such that axis[b] <= x < axis[b+1]. It returns -1 when x
// is below the first sample and len(axis)-1 when x is at or beyond the
// last sample, except that x equal to the last sample returns len(axis)-2
// so the final interval brackets it.
func hunt(axis []float64, x float64) int {
	n := len(axis)
	if x == axis[n-1] {
		return n - 2
	}

	bot, top := -1, n
	for top-bot > 1 {
		i := (top + bot) / 2
		if x >= axis[i] {
			bot = i
		} else {
			top = i
		}
	}
	return bot
}
