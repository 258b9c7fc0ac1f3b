package domain

import "math"

const (
	// EarthRadiusKm is the spherical earth radius used to convert between
	// angular and surface distance.
	EarthRadiusKm = 6371.0

	// KmPerDegree is the surface length of one degree of great-circle arc.
	KmPerDegree = EarthRadiusKm * math.Pi / 180
)

// GreatCircleDegrees returns the angular separation in degrees between two
// points on a sphere, using the haversine formula.
func GreatCircleDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)) * 180 / math.Pi
}

// DegreesToKm converts a great-circle angle to surface distance.
func DegreesToKm(deg float64) float64 { return deg * KmPerDegree }
