package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/almrun/internal/application"
	"github.com/sawpanic/almrun/internal/metrics"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check inputs and scenario and calibrate the bond ladder",
		Long: `Loads the run configuration, the model inputs and the scenario, builds the cohort
graph and solves the default probability of the existing bond portfolio without
projecting any path.`,
		RunE: runValidate,
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer env.close()

	svc := application.NewService(env.cfg, env.inputs, env.scen, application.Deps{Metrics: metrics.NewRegistry()})
	if err := svc.Prepare(); err != nil {
		return err
	}

	g := svc.Engine().Graph()
	sol := svc.Engine().Calibration()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario:            %s (%d paths)\n", env.scen.ID, len(env.scen.Paths))
	fmt.Fprintf(out, "horizon:             %d\n", g.Horizon)
	fmt.Fprintf(out, "cohorts:             %d (%d fund-linked chains)\n", len(g.Cohorts), g.Funds())
	fmt.Fprintf(out, "default probability: %.6f (%d iterations)\n", sol.Root, sol.Iterations)
	fmt.Fprintf(out, "market value:        %.2f\n", g.Ladder.MarketValue)
	fmt.Fprintf(out, "book value:          %.2f\n", g.Ladder.InitialBookValue)
	fmt.Fprintf(out, "duration:            %.3f\n", g.Ladder.Duration)
	return nil
}
