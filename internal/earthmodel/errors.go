package earthmodel

import "errors"

var (
	// ErrValidation reports axes or tables that do not satisfy the
	// structural requirements of the interpolator.
	ErrValidation = errors.New("invalid earth model")

	// ErrInsufficientData reports a neighborhood with too few valid samples
	// to fill a hole or extrapolate.
	ErrInsufficientData = errors.New("insufficient valid samples")

	// ErrNoGridPoint reports a query depth that does not match the only
	// depth of a single-depth table.
	ErrNoGridPoint = errors.New("no grid point at requested depth")

	// ErrDegeneratePole reports an exact pole in the rational interpolation
	// tableau.
	ErrDegeneratePole = errors.New("rational interpolation hit a pole")
)
