package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
)

// ErrNoPrediction reports an interpolation that produced no usable value,
// such as a query against missing samples with extrapolation disabled.
var ErrNoPrediction = errors.New("no prediction available")

const (
	gridTravelTime    = "travel_time"
	gridModelingError = "modeling_error"
)

// TableSource resolves lookup tables by earth model and phase.
type TableSource interface {
	Get(model, phase string) (*lookuptable.Table, error)
}

// Options configures a Predictor.
type Options struct {
	// Extrapolate fills holes and off-grid queries instead of returning NaN.
	Extrapolate bool
	// CacheSize bounds the number of cached utilities.
	CacheSize int
	// Velocities are the near-surface velocities used by the elevation
	// correction.
	Velocities Velocities
}

// Predictor turns prediction requests into arrival-time feature predictions.
// It is safe for concurrent use.
type Predictor struct {
	tables  TableSource
	opts    Options
	cache   *utilityCache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Predictor backed by tables.
func New(tables TableSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	return &Predictor{
		tables:  tables,
		opts:    opts,
		cache:   newUtilityCache(opts.CacheSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Predict computes the travel time, its derivatives and the predicted
// arrival time for req. The request is expected to be normalized and
// validated.
func (p *Predictor) Predict(ctx context.Context, req domain.PredictionRequest) (domain.FeaturePrediction, error) {
	if err := ctx.Err(); err != nil {
		return domain.FeaturePrediction{}, err
	}

	start := time.Now()
	pred, err := p.predict(req)
	p.metrics.PredictionDuration.WithLabelValues(req.Phase).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		p.metrics.Predictions.WithLabelValues(req.Phase, "error").Inc()
		return domain.FeaturePrediction{}, fmt.Errorf("predict %s %s/%s: %w", req.ID, req.EarthModel, req.Phase, err)
	case pred.Extrapolated:
		p.metrics.Predictions.WithLabelValues(req.Phase, "extrapolated").Inc()
	default:
		p.metrics.Predictions.WithLabelValues(req.Phase, "success").Inc()
	}
	return pred, nil
}

func (p *Predictor) predict(req domain.PredictionRequest) (domain.FeaturePrediction, error) {
	table, err := p.tables.Get(req.EarthModel, req.Phase)
	if err != nil {
		return domain.FeaturePrediction{}, err
	}

	tt, err := p.utility(table, gridTravelTime, table.TravelTime)
	if err != nil {
		return domain.FeaturePrediction{}, err
	}

	distance := domain.GreatCircleDegrees(
		req.Source.Latitude, req.Source.Longitude,
		req.Receiver.Latitude, req.Receiver.Longitude,
	)
	res, err := tt.Interpolate(req.Source.DepthKm, distance)
	if err != nil {
		return domain.FeaturePrediction{}, err
	}
	if !finite(res.Value()) {
		return domain.FeaturePrediction{}, fmt.Errorf("%w: travel time at depth %g km, distance %g deg", ErrNoPrediction, req.Source.DepthKm, distance)
	}

	out := domain.NewFeaturePrediction(req)
	out.DistanceDeg = distance
	out.BaselineTravelTime = res.Value()
	out.TravelTime = res.Value()
	out.Extrapolated = res.Extrapolated
	out.Derivatives = domain.Derivatives{
		DDepth:          res.DDepth(),
		D2Depth:         res.D2Depth(),
		DDistance:       res.DDistance(),
		DDepthDDistance: res.DDepthDDistance(),
	}
	out.Components = []domain.Component{{
		Type:         domain.BaselinePrediction,
		Value:        res.Value(),
		Extrapolated: res.Extrapolated,
	}}

	if req.Wants(domain.ElevationCorrection) {
		v, err := p.opts.Velocities.ForPhase(req.Phase)
		if err != nil {
			return domain.FeaturePrediction{}, err
		}
		corr, err := elevationCorrection(req.Receiver.ElevationKm, v, res.DDistance())
		if err != nil {
			return domain.FeaturePrediction{}, err
		}
		out.TravelTime += corr
		out.Components = append(out.Components, domain.Component{
			Type:  domain.ElevationCorrection,
			Value: corr,
		})
	}

	if req.Wants(domain.EllipticityCorrection) {
		p.logger.Warn("correction not available, omitting component",
			"request_id", req.ID,
			"correction", string(domain.EllipticityCorrection),
		)
	}

	if table.ModelingError != nil {
		if me, ok := p.modelingError(table, req.Source.DepthKm, distance); ok {
			out.ModelingError = &me
		}
	}

	out.ArrivalTime = req.Source.Time.Add(seconds(out.TravelTime))
	return out, nil
}

// modelingError interpolates the table's modeling-error grid. Failures are
// logged and leave the prediction without an uncertainty.
func (p *Predictor) modelingError(table *lookuptable.Table, depth, distance float64) (float64, bool) {
	u, err := p.utility(table, gridModelingError, *table.ModelingError)
	if err != nil {
		p.logger.Warn("modeling error grid unavailable", "table", table.Key().String(), "error", err)
		return 0, false
	}
	res, err := u.Interpolate(depth, distance)
	if err != nil || !finite(res.Value()) {
		p.logger.Warn("modeling error not interpolated",
			"table", table.Key().String(),
			"depth_km", depth,
			"distance_deg", distance,
			"error", err,
		)
		return 0, false
	}
	return res.Value(), true
}

func (p *Predictor) utility(table *lookuptable.Table, grid string, g lookuptable.Grid) (*earthmodel.Utility, error) {
	key := table.Key().String() + "#" + grid
	u, hit, err := p.cache.getOrBuild(key, func() (*earthmodel.Utility, error) {
		return earthmodel.NewUtility(g.DepthsKm, g.DistancesDeg, g.Values, p.opts.Extrapolate)
	})
	if err != nil {
		return nil, fmt.Errorf("build %s utility: %w", key, err)
	}
	if hit {
		p.metrics.UtilityCache.WithLabelValues("hit").Inc()
	} else {
		p.metrics.UtilityCache.WithLabelValues("miss").Inc()
	}
	return u, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
