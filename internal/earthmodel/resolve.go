package earthmodel

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const (
	distanceProximityTolerance = 0.00001
	depthProximityTolerance    = 0.001
	offHighTolerance           = 1e-9
)

// DepthCase classifies a query depth against the depth axis.
type DepthCase int

const (
	DepthWithin DepthCase = iota
	DepthOffShallow
	DepthOffDeep
)

func (c DepthCase) String() string {
	switch c {
	case DepthOffShallow:
		return "off_shallow"
	case DepthOffDeep:
		return "off_deep"
	default:
		return "within"
	}
}

// DistanceCase classifies a query distance against the valid region of
// the distance axis.
type DistanceCase int

const (
	DistanceWithinClean DistanceCase = iota
	DistanceWithinWithGaps
	DistanceInHole
	DistanceOffLow
	DistanceOffHigh
)

func (c DistanceCase) String() string {
	switch c {
	case DistanceWithinWithGaps:
		return "within_with_gaps"
	case DistanceInHole:
		return "in_hole"
	case DistanceOffLow:
		return "off_low"
	case DistanceOffHigh:
		return "off_high"
	default:
		return "within_clean"
	}
}

// resolution is the scratch state of a single Interpolate call.
type resolution struct {
	depth, distance float64

	nxReq, nzReq   int
	zTop, zBottom  int
	xLow, xHigh    int
	depthCase      DepthCase
	distanceCase   DistanceCase
	extrapolated   bool
	distanceShifts bool
}

func newResolution(u *Utility, depth, distance float64) *resolution {
	return &resolution{
		depth:    depth,
		distance: distance,
		nxReq:    min(MaxDistSamples, len(u.distances)),
		nzReq:    min(MaxDepthSamples, len(u.depths)),
	}
}

type miniTable struct {
	depths    []float64
	distances []float64
	values    [][]float64
}

// buildMiniTable extracts the neighborhood of the query and, when the
// Utility extrapolates, fills every missing sample in it.
func (u *Utility) buildMiniTable(r *resolution) (miniTable, error) {
	if err := u.resolveDepth(r); err != nil {
		return miniTable{}, err
	}
	if err := u.resolveDistance(r); err != nil {
		return miniTable{}, err
	}

	mt := miniTable{
		depths:    slices.Clone(u.depths[r.zTop : r.zTop+r.nzReq]),
		distances: slices.Clone(u.distances[r.xLow : r.xLow+r.nxReq]),
		values:    make([][]float64, r.nzReq),
	}
	for k := range mt.values {
		mt.values[k] = slices.Clone(u.table[r.zTop+k][r.xLow : r.xLow+r.nxReq])
	}
	if !u.extrapolate {
		return mt, nil
	}

	r.distanceShifts = u.shiftDistanceAxis(r, mt.distances)

	for k, cells := range mt.values {
		row := u.table[r.zTop+k]
		var err error
		switch r.distanceCase {
		case DistanceInHole, DistanceOffHigh:
			err = u.fillHighOrHole(r, row, cells, mt.distances)
		case DistanceOffLow:
			err = u.fillLow(r, row, cells, mt.distances)
		default:
			if floats.HasNaN(cells) {
				r.distanceCase = DistanceWithinWithGaps
				err = u.fillGaps(r, row, cells, mt.distances)
			}
		}
		if err != nil {
			return miniTable{}, fmt.Errorf("depth %g, distance %g (%s): %w", u.depths[r.zTop+k], r.distance, r.distanceCase, err)
		}
	}

	if err := u.extrapolateDepth(r, &mt); err != nil {
		return miniTable{}, err
	}

	for k, cells := range mt.values {
		if floats.HasNaN(cells) {
			return miniTable{}, fmt.Errorf("%w: mini-table row %d still has missing samples", ErrInsufficientData, k)
		}
	}

	r.extrapolated = r.extrapolated || r.distanceCase == DistanceInHole
	return mt, nil
}

func (u *Utility) resolveDepth(r *resolution) error {
	depths := u.depths
	if len(depths) == 1 {
		r.zTop, r.zBottom = 0, 0
		if r.depth != depths[0] {
			return fmt.Errorf("%w: requested %g, table depth %g", ErrNoGridPoint, r.depth, depths[0])
		}
		return nil
	}

	zLeft := hunt(depths, r.depth)
	switch {
	case zLeft < 0:
		if math.Abs(r.depth-depths[0]) >= depthProximityTolerance {
			r.depthCase = DepthOffShallow
		}
		r.zTop, r.zBottom = 0, r.nzReq-1
	case zLeft >= len(depths)-1:
		r.depthCase = DepthOffDeep
		r.zTop, r.zBottom = len(depths)-r.nzReq, len(depths)-1
	default:
		r.zBottom = min(zLeft+r.nzReq/2, len(depths)-1)
		r.zTop = max(r.zBottom-r.nzReq+1, 0)
		r.nzReq = r.zBottom - r.zTop + 1
	}
	return nil
}

// resolveDistance brackets the query distance with an nxReq wide window
// and then moves the window toward valid samples of the first mini-table
// row.
func (u *Utility) resolveDistance(r *resolution) error {
	distances := u.distances
	n := len(distances)

	xLeft := hunt(distances, r.distance)
	switch {
	case xLeft < 0:
		if math.Abs(r.distance-distances[0]) >= distanceProximityTolerance {
			r.distanceCase = DistanceOffLow
		}
		r.xLow, r.xHigh = 0, r.nxReq-1
	case xLeft >= n-1:
		r.distanceCase = DistanceOffHigh
		r.xLow, r.xHigh = n-r.nxReq, n-1
	default:
		r.xHigh = min(xLeft+r.nxReq/2, n-1)
		r.xLow = max(r.xHigh-r.nxReq+1, 0)
		if r.xLow == 0 {
			r.xHigh = r.nxReq - 1
		}
		if u.hole.contains(r.distance) {
			r.distanceCase = DistanceInHole
		}
	}

	row := u.table[r.zTop]
	half := (r.nxReq - 1) / 2

	switch r.distanceCase {
	case DistanceInHole:
		if invalid(row[r.xHigh]) {
			r.extrapolated = true
			for range half {
				r.xHigh--
				if valid(row[r.xHigh]) {
					break
				}
			}
			r.xLow = r.xHigh - r.nxReq + 1
		} else {
			for range half {
				r.xLow++
				if valid(row[r.xLow]) {
					break
				}
			}
			r.xHigh = r.xLow + r.nxReq - 1
		}
	case DistanceWithinClean:
		if valid(row[0]) && invalid(row[r.xHigh]) {
			r.extrapolated = true
			r.distanceCase = DistanceOffHigh
			for range half {
				r.xHigh--
				if valid(row[r.xHigh]) {
					r.distanceCase = DistanceWithinClean
					break
				}
			}
			r.xLow = r.xHigh - r.nxReq + 1
		} else if invalid(row[r.xLow]) {
			r.extrapolated = true
			r.distanceCase = DistanceOffLow
			for range half {
				r.xLow++
				if valid(row[r.xLow]) {
					r.distanceCase = DistanceWithinClean
					break
				}
			}
			r.xHigh = r.xLow + r.nxReq - 1
		}
	}

	if r.xLow < 0 {
		r.xLow, r.xHigh = 0, r.nxReq-1
	}
	if r.xHigh >= n {
		r.xLow, r.xHigh = n-r.nxReq, n-1
	}
	return nil
}

// shiftDistanceAxis centers the mini distance axis on a query that lies
// clearly beyond the valid table region. It reports whether it shifted.
func (u *Utility) shiftDistanceAxis(r *resolution, miniDist []float64) bool {
	half := (r.nxReq - 1) / 2

	var shift float64
	switch {
	case r.distanceCase == DistanceOffHigh && r.distance-u.distances[r.xHigh] > offHighTolerance:
		shift = r.distance - u.distances[r.xHigh-half]
	case r.distanceCase == DistanceOffLow && r.distance < u.distances[r.xLow]:
		shift = r.distance - u.distances[r.xLow+half]
	default:
		return false
	}

	for j := range miniDist {
		miniDist[j] += shift
	}
	return true
}

// fillHighOrHole fills a row of a query beyond the high end of the valid
// region or inside a hole, using the nxReq samples that start at the first
// valid sample found scanning outward from the window edge.
func (u *Utility) fillHighOrHole(r *resolution, row, cells, miniDist []float64) error {
	var start int
	switch {
	case r.distanceShifts:
		start = r.xLow
		markMissing(cells)
	case valid(row[r.xHigh]):
		start = firstValid(row, r.xLow)
	default:
		start = firstValid(row, r.xHigh)
		if start < 0 {
			return fmt.Errorf("%w: no valid samples beyond distance %g", ErrInsufficientData, u.distances[r.xHigh])
		}
		start = start - r.nxReq + 1
	}
	start = max(0, min(start, len(row)-r.nxReq))

	end := start + r.nxReq
	return r.fillRow(cells, miniDist, u.distances[start:end], row[start:end])
}

// fillLow fills a row of a query below the low end of the valid region
// from the samples of the unshifted window.
func (u *Utility) fillLow(r *resolution, row, cells, miniDist []float64) error {
	if r.distanceShifts {
		markMissing(cells)
	}
	end := r.xLow + r.nxReq
	return r.fillRow(cells, miniDist, u.distances[r.xLow:end], row[r.xLow:end])
}

// fillGaps fills scattered missing samples of a row inside the valid
// distance range, one run at a time from the left.
func (u *Utility) fillGaps(r *resolution, row, cells, miniDist []float64) error {
	for {
		j := firstInvalid(cells)
		if j < 0 {
			return nil
		}
		r.extrapolated = true

		var err error
		if j > 0 {
			err = u.fillTrailing(r, row, cells, miniDist, j)
		} else {
			err = u.fillLeading(r, row, cells, miniDist)
		}
		if err != nil {
			return err
		}
	}
}

// fillTrailing extrapolates cells j and beyond from the valid samples
// that end just before column j, reaching back past the window start when
// possible.
func (u *Utility) fillTrailing(r *resolution, row, cells, miniDist []float64, j int) error {
	numSamp := r.nxReq
	i := r.xLow - (r.nxReq - j)
	for i < 0 || invalid(row[i]) {
		i++
		numSamp--
		if numSamp < MinNumDistSamples {
			return fmt.Errorf("%w: %d samples before distance %g", ErrInsufficientData, numSamp, miniDist[j])
		}
	}

	xs, ys := u.distances[i:i+numSamp], row[i:i+numSamp]
	for m := j; m < r.nxReq; m++ {
		if err := r.fillCell(cells, m, miniDist, xs, ys); err != nil {
			return err
		}
	}
	return nil
}

// fillLeading advances from the window start to the first valid sample
// and extrapolates the leading missing cells back from the valid samples
// of the nxReq wide window that starts there.
func (u *Utility) fillLeading(r *resolution, row, cells, miniDist []float64) error {
	start := -1
	for i := r.xLow; i < r.xHigh; i++ {
		if valid(row[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return fmt.Errorf("%w: no valid samples in distance window", ErrInsufficientData)
	}

	end := min(start+r.nxReq, len(row))
	xs := make([]float64, 0, end-start)
	ys := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		if valid(row[i]) {
			xs = append(xs, u.distances[i])
			ys = append(ys, row[i])
		}
	}
	if len(xs) < MinNumDistSamples {
		return fmt.Errorf("%w: %d samples after distance %g", ErrInsufficientData, len(xs), u.distances[start])
	}

	for n := 0; n < start-r.xLow; n++ {
		if err := r.fillCell(cells, n, miniDist, xs, ys); err != nil {
			return err
		}
	}
	return nil
}

// extrapolateDepth rebuilds every mini-table column at depths shifted to
// center on a query above or below the depth axis.
func (u *Utility) extrapolateDepth(r *resolution, mt *miniTable) error {
	var center int
	switch r.depthCase {
	case DepthOffDeep:
		center = r.zBottom - (r.nzReq-1)/2
	case DepthOffShallow:
		center = r.zTop + (r.nzReq-1)/2
	default:
		return nil
	}
	r.extrapolated = true

	shift := r.depth - u.depths[center]
	for i := range mt.depths {
		mt.depths[i] += shift
	}

	src := u.depths[r.zTop : r.zTop+r.nzReq]
	columns := transposeMatrix(mt.values)
	for j, column := range columns {
		for i := range r.nzReq {
			v, err := RationalInterpolate(src, column, mt.depths[i])
			if err != nil {
				return fmt.Errorf("extrapolate depth %g at distance %g (%s): %w", mt.depths[i], mt.distances[j], r.depthCase, err)
			}
			mt.values[i][j] = v
		}
	}
	return nil
}

func (r *resolution) fillRow(cells, miniDist, xs, ys []float64) error {
	for j := range cells {
		if err := r.fillCell(cells, j, miniDist, xs, ys); err != nil {
			return err
		}
	}
	return nil
}

// fillCell replaces a missing cell with the rational interpolant of the
// valid (xs, ys) samples at miniDist[j].
func (r *resolution) fillCell(cells []float64, j int, miniDist, xs, ys []float64) error {
	if valid(cells[j]) {
		return nil
	}
	r.extrapolated = true

	px := make([]float64, 0, len(xs))
	py := make([]float64, 0, len(ys))
	for i, y := range ys {
		if valid(y) {
			px = append(px, xs[i])
			py = append(py, y)
		}
	}
	if len(px) < MinNumDistSamples {
		return fmt.Errorf("%w: %d valid samples to fill distance %g", ErrInsufficientData, len(px), miniDist[j])
	}

	v, err := RationalInterpolate(px, py, miniDist[j])
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: fill at distance %g diverged", ErrInsufficientData, miniDist[j])
	}
	cells[j] = v
	return nil
}

func markMissing(cells []float64) {
	for j := range cells {
		cells[j] = math.NaN()
	}
}

func firstValid(row []float64, from int) int {
	for i := from; i < len(row); i++ {
		if valid(row[i]) {
			return i
		}
	}
	return -1
}

func firstInvalid(cells []float64) int {
	for j, v := range cells {
		if invalid(v) {
			return j
		}
	}
	return -1
}
