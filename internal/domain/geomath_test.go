package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	honoluluLat, honoluluLon = 21.3280193, -157.869113
	wakeLat, wakeLon         = 19.2898828, 166.6138514
)

func TestGreatCircleDegrees(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"Honolulu to Wake Island", honoluluLat, honoluluLon, wakeLat, wakeLon, 33.30258173},
		{"same point", 35, -97, 35, -97, 0},
		{"quarter meridian", 0, 0, 90, 0, 90},
		{"antipodes", 59.1264576, 11.3689017, -59.1264576, -168.631098, 180},
		{"across the antimeridian", 0, 179.5, 0, -179.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GreatCircleDegrees(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestGreatCircleDegrees_Symmetric(t *testing.T) {
	ab := GreatCircleDegrees(honoluluLat, honoluluLon, wakeLat, wakeLon)
	ba := GreatCircleDegrees(wakeLat, wakeLon, honoluluLat, honoluluLon)
	assert.InDelta(t, ab, ba, 1e-12)
}

func TestDegreesToKm(t *testing.T) {
	got := DegreesToKm(GreatCircleDegrees(honoluluLat, honoluluLon, wakeLat, wakeLon))
	assert.InEpsilon(t, 3703.078133, got, 1e-7)
}
