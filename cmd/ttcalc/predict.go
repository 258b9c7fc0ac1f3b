package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
)

var predictReq struct {
	model     string
	phase     string
	station   string
	origin    string
	srcLat    float64
	srcLon    float64
	depth     float64
	rcvLat    float64
	rcvLon    float64
	elevation float64
	elevCorr  bool
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a phase arrival for an event and a station",
	Long:  "Runs the full prediction: great-circle distance, table interpolation, optional elevation correction and arrival time.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		origin := time.Now().UTC()
		if predictReq.origin != "" {
			t, err := time.Parse(time.RFC3339, predictReq.origin)
			if err != nil {
				return fmt.Errorf("parse --origin: %w", err)
			}
			origin = t
		}

		req := domain.NormalizeRequest(domain.PredictionRequest{
			ID:         "cli",
			Phase:      predictReq.phase,
			EarthModel: predictReq.model,
			Source: domain.EventLocation{
				Latitude:  predictReq.srcLat,
				Longitude: predictReq.srcLon,
				DepthKm:   predictReq.depth,
				Time:      origin,
			},
			Receiver: domain.ReceiverLocation{
				Station:     predictReq.station,
				Latitude:    predictReq.rcvLat,
				Longitude:   predictReq.rcvLon,
				ElevationKm: predictReq.elevation,
			},
		})
		if predictReq.elevCorr {
			req.Corrections = []domain.ComponentType{domain.ElevationCorrection}
		}
		if err := domain.ValidateRequest(req); err != nil {
			return err
		}

		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}
		p := predictor.New(reg, predictor.Options{
			Extrapolate: !noExtrap,
			CacheSize:   cfg.UtilityCacheSize,
			Velocities:  predictor.Velocities{P: cfg.ElevationVelocityP, S: cfg.ElevationVelocityS},
		}, logger, observability.NewMetricsForTesting())

		fp, err := p.Predict(cmd.Context(), req)
		if err != nil {
			return err
		}

		if jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(fp)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s at %s: %.4f deg, depth %.3f km\n", fp.EarthModel, fp.Phase, fp.Station, fp.DistanceDeg, fp.DepthKm)
		for _, c := range fp.Components {
			fmt.Fprintf(w, "  %-22s %10.4f s\n", c.Type, c.Value)
		}
		fmt.Fprintf(w, "  %-22s %10.4f s\n", "TRAVEL_TIME", fp.TravelTime)
		if fp.ModelingError != nil {
			fmt.Fprintf(w, "  %-22s %10.4f s\n", "MODELING_ERROR", *fp.ModelingError)
		}
		fmt.Fprintf(w, "  arrival %s\n", fp.ArrivalTime.Format(time.RFC3339Nano))
		if fp.Extrapolated {
			fmt.Fprintln(w, "  (extrapolated)")
		}
		return nil
	},
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictReq.model, "model", "ak135", "earth model")
	f.StringVar(&predictReq.phase, "phase", "P", "seismic phase")
	f.StringVar(&predictReq.station, "station", "STA", "station code")
	f.StringVar(&predictReq.origin, "origin", "", "origin time, RFC3339 (default now)")
	f.Float64Var(&predictReq.srcLat, "source-lat", 0, "event latitude (deg)")
	f.Float64Var(&predictReq.srcLon, "source-lon", 0, "event longitude (deg)")
	f.Float64Var(&predictReq.depth, "depth", 0, "event depth (km)")
	f.Float64Var(&predictReq.rcvLat, "receiver-lat", 0, "station latitude (deg)")
	f.Float64Var(&predictReq.rcvLon, "receiver-lon", 0, "station longitude (deg)")
	f.Float64Var(&predictReq.elevation, "elevation", 0, "station elevation (km)")
	f.BoolVar(&predictReq.elevCorr, "elevation-correction", false, "apply the receiver elevation correction")
}
