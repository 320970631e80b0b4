package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-datajoin/internal/watchdog"
)

func newMemcheckCmd(a *app) *cobra.Command {
	var (
		waterLevel float64
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "memcheck",
		Short: "Report heap usage against the memory ceiling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if waterLevel <= 0 || waterLevel > 1 {
				return fmt.Errorf("water level must be in (0, 1], got %v", waterLevel)
			}
			limit, err := a.cfg.MemLimit()
			if err != nil {
				return err
			}

			wd := watchdog.New(watchdog.Config{Limit: limit, Metrics: a.metrics})
			atRisk := wd.CheckRisk(waterLevel, force)
			heap, _ := wd.LastSample()

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "limit\t%d\n", wd.Limit())
			fmt.Fprintf(w, "threshold\t%.0f\n", wd.Threshold(waterLevel))
			fmt.Fprintf(w, "heap\t%d\n", heap)
			fmt.Fprintf(w, "at_risk\t%t\n", atRisk)
			return w.Flush()
		},
	}
	defaultLevel := a.cfg.Watchdog.WaterLevel
	if defaultLevel == 0 {
		defaultLevel = watchdog.DefaultWaterLevel
	}
	cmd.Flags().Float64Var(&waterLevel, "water-level", defaultLevel, "fraction of available memory treated as at risk")
	cmd.Flags().BoolVar(&force, "force", true, "take a fresh heap sample")
	return cmd
}
