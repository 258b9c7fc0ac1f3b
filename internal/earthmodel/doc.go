// Package earthmodel estimates tabulated earth-model quantities (travel
// times and the like) and their partial derivatives at an arbitrary
// (depth, distance) point.
//
// # Tables
//
// A model is two strictly increasing axes and a table indexed
// [depth][distance]. Missing samples are NaN. Travel-time tables are
// typically sparse: shadow zones and phase cut-offs leave holes in the
// middle of a row and ragged ends at large distances.
//
// # Algorithm
//
// For each query the [Utility] extracts a small neighborhood (at most
// [MaxDepthSamples] x [MaxDistSamples]) around the query point and makes
// it fully populated:
//
//	holes        filled by rational-function interpolation over the
//	             valid samples next to the hole
//	off-grid     the mini axis is shifted so it is centered on the query
//	             and every cell is extrapolated from the nearest valid run
//	too sparse   fewer than [MinNumDistSamples] valid samples fails with
//	             [ErrInsufficientData]
//
// The mini-table is handed to [BicubicSpline], which evaluates natural
// cubic splines along both axes. The cross derivative is a central
// finite difference of df/dx with a fixed step of 1e-7.
//
// # Concurrency
//
// A Utility holds only read-only references. All per-call scratch lives
// in a resolution value local to [Utility.Interpolate], so one Utility can
// be shared by any number of goroutines.
package earthmodel
