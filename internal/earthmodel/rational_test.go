package earthmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRationalInterpolate(t *testing.T) {
	t.Run("exact abscissa returns ordinate", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4}
		ys := []float64{7, -3, 11, 0.5}
		for i, x := range xs {
			got, err := RationalInterpolate(xs, ys, x)
			require.NoError(t, err)
			assert.Equal(t, ys[i], got)
		}
	})

	t.Run("smooth data", func(t *testing.T) {
		got, err := RationalInterpolate([]float64{1, 2, 3, 4}, []float64{1, 4, 9, 16}, 2.5)
		require.NoError(t, err)
		assert.InDelta(t, 6.25, got, 0.05)
	})

	t.Run("linear data between samples", func(t *testing.T) {
		got, err := RationalInterpolate([]float64{1, 2, 3}, []float64{2, 4, 6}, 2.5)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, got, 1e-9)
	})

	t.Run("unsorted abscissae", func(t *testing.T) {
		xs := []float64{3, 1, 4, 2}
		ys := make([]float64, len(xs))
		for i, x := range xs {
			ys[i] = math.Exp(x / 4)
		}
		got, err := RationalInterpolate(xs, ys, 2.5)
		require.NoError(t, err)
		assert.InDelta(t, math.Exp(2.5/4), got, 1e-4)
	})

	t.Run("zero ordinates", func(t *testing.T) {
		got, err := RationalInterpolate([]float64{0, 1, 2}, []float64{0, 0, 0}, 1.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got, 1e-12)
	})

	t.Run("length mismatch", func(t *testing.T) {
		got, err := RationalInterpolate([]float64{1, 2, 3}, []float64{1, 2}, 1.5)
		require.ErrorIs(t, err, ErrValidation)
		assert.True(t, math.IsNaN(got))
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := RationalInterpolate(nil, nil, 1)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("exact pole", func(t *testing.T) {
		got, err := RationalInterpolate([]float64{1, 2, 3}, []float64{2, 4, 6}, 5)
		require.ErrorIs(t, err, ErrDegeneratePole)
		assert.True(t, math.IsNaN(got))
	})
}
