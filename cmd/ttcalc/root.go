// Command ttcalc queries travel-time lookup tables from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/feature-prediction-service/internal/config"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
)

var (
	cfg      *config.Config
	logger   *slog.Logger
	tableDir string
	noExtrap bool
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "ttcalc",
	Short: "Travel-time lookup and interpolation tool",
	Long:  "Loads earth-model travel-time tables and evaluates travel times, derivatives and arrival-time predictions.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg)

		if tableDir == "" {
			tableDir = cfg.LookupTableDir
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tableDir, "tables", "", "lookup table directory (default $LOOKUP_TABLE_DIR)")
	rootCmd.PersistentFlags().BoolVar(&noExtrap, "no-extrapolate", false, "leave holes and off-grid queries unfilled")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(tablesCmd, interpolateCmd, predictCmd)
}

func loadRegistry(ctx context.Context) (*lookuptable.Registry, error) {
	reg, err := lookuptable.LoadRegistry(ctx, tableDir)
	if err != nil {
		return nil, fmt.Errorf("load tables from %s: %w", tableDir, err)
	}
	logger.Debug("lookup tables loaded", "dir", tableDir, "count", reg.Len())
	return reg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
