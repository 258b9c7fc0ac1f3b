package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
)

var (
	interpModel    string
	interpPhase    string
	interpDepth    float64
	interpDistance float64
)

// interpolation is the JSON form of an interpolation result.
type interpolation struct {
	Model           string  `json:"model"`
	Phase           string  `json:"phase"`
	DepthKm         float64 `json:"depth_km"`
	DistanceDeg     float64 `json:"distance_deg"`
	Value           float64 `json:"value"`
	DDepth          float64 `json:"d_depth"`
	D2Depth         float64 `json:"d2_depth"`
	DDistance       float64 `json:"d_distance"`
	DDepthDDistance float64 `json:"d_depth_d_distance"`
	Extrapolated    bool    `json:"extrapolated"`
}

var interpolateCmd = &cobra.Command{
	Use:   "interpolate",
	Short: "Evaluate a travel-time table at a depth and distance",
	Long:  "Interpolates the travel-time grid of one table directly, printing the value and its partial derivatives.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}
		t, err := reg.Get(interpModel, interpPhase)
		if err != nil {
			return err
		}

		g := t.TravelTime
		u, err := earthmodel.NewUtility(g.DepthsKm, g.DistancesDeg, g.Values, !noExtrap)
		if err != nil {
			return fmt.Errorf("interpolate %s: %w", t.Key(), err)
		}
		res, err := u.Interpolate(interpDepth, interpDistance)
		if err != nil {
			return fmt.Errorf("interpolate %s at (%g km, %g deg): %w", t.Key(), interpDepth, interpDistance, err)
		}
		// Missing samples propagate as NaN when extrapolation is off.
		if math.IsNaN(res.Value()) || math.IsInf(res.Value(), 0) {
			return fmt.Errorf("interpolate %s at (%g km, %g deg): %w", t.Key(), interpDepth, interpDistance, predictor.ErrNoPrediction)
		}

		out := interpolation{
			Model:           t.Model,
			Phase:           t.Phase,
			DepthKm:         interpDepth,
			DistanceDeg:     interpDistance,
			Value:           res.Value(),
			DDepth:          res.DDepth(),
			D2Depth:         res.D2Depth(),
			DDistance:       res.DDistance(),
			DDepthDDistance: res.DDepthDDistance(),
			Extrapolated:    res.Extrapolated,
		}
		if jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s at %.3f km, %.4f deg\n", t.Key(), out.DepthKm, out.DistanceDeg)
		fmt.Fprintf(w, "  value        %12.4f %s\n", out.Value, t.Units)
		fmt.Fprintf(w, "  d/ddepth     %12.6f\n", out.DDepth)
		fmt.Fprintf(w, "  d2/ddepth2   %12.6f\n", out.D2Depth)
		fmt.Fprintf(w, "  d/ddistance  %12.6f\n", out.DDistance)
		fmt.Fprintf(w, "  d2/ddd       %12.6f\n", out.DDepthDDistance)
		fmt.Fprintf(w, "  extrapolated %12t\n", out.Extrapolated)
		return nil
	},
}

func init() {
	interpolateCmd.Flags().StringVar(&interpModel, "model", "ak135", "earth model")
	interpolateCmd.Flags().StringVar(&interpPhase, "phase", "P", "seismic phase")
	interpolateCmd.Flags().Float64Var(&interpDepth, "depth", 0, "source depth (km)")
	interpolateCmd.Flags().Float64Var(&interpDistance, "distance", 0, "angular distance (deg)")
	_ = interpolateCmd.MarkFlagRequired("distance")
}
