package predictor

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
)

var (
	// ErrNoVelocity reports a phase whose receiver-side wave type is unknown.
	ErrNoVelocity = errors.New("no medium velocity for phase")

	// ErrEvanescent reports a ray that cannot reach the surface through the
	// medium beneath the receiver (v·p >= 1).
	ErrEvanescent = errors.New("ray is evanescent at the receiver")
)

// Velocities are the medium velocities (km/s) directly beneath receivers.
type Velocities struct {
	P float64
	S float64
}

// ForPhase returns the velocity of the wave type of the phase's last leg:
// "PcS" and "SKS" arrive as S waves, "ScP" and "Pn" as P waves. Lg and Rg
// travel as shear waves.
func (v Velocities) ForPhase(phase string) (float64, error) {
	for i := len(phase) - 1; i >= 0; i-- {
		switch phase[i] {
		case 'P', 'p':
			return v.P, nil
		case 'S', 's':
			return v.S, nil
		}
	}
	if strings.HasSuffix(phase, "g") {
		return v.S, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrNoVelocity, phase)
}

// elevationCorrection returns the extra travel time (s) spent crossing
// elevationKm of medium with velocity v (km/s) at a ray slowness of
// dTdDeg (s/deg): (h/v)·sqrt(1 − (v·p)²), with p in s/km.
func elevationCorrection(elevationKm, v, dTdDeg float64) (float64, error) {
	p := dTdDeg / domain.KmPerDegree
	vp := v * p
	if vp*vp >= 1 {
		return 0, fmt.Errorf("%w: v=%g km/s, p=%g s/km", ErrEvanescent, v, p)
	}
	return elevationKm / v * math.Sqrt(1-vp*vp), nil
}
