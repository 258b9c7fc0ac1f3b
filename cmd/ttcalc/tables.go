package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List loaded lookup tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tPHASE\tDEPTHS\tDISTANCES\tMISSING\tMODELING ERROR")
		for _, key := range reg.Keys() {
			t, err := reg.Get(key.Model, key.Phase)
			if err != nil {
				return err
			}
			g := t.TravelTime
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%t\n",
				t.Model, t.Phase, len(g.DepthsKm), len(g.DistancesDeg), g.Missing(), t.ModelingError != nil)
		}
		return w.Flush()
	},
}
