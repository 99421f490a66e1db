package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/almrun/internal/application"
	logprogress "github.com/sawpanic/almrun/internal/log"
	"github.com/sawpanic/almrun/internal/metrics"
	"github.com/sawpanic/almrun/internal/projection"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project the configured scenario",
		Long: `Builds the cohort graph, calibrates the existing bond portfolio and projects every
requested path. Finished paths are written as JSON lines to the output directory and,
when enabled, to Postgres. Ctrl-C aborts after the running paths.`,
		RunE: runProject,
	}
	addRunFlags(cmd.Flags())
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	return cmd
}

func runProject(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := loadEnvironment(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	total := len(env.cfg.Paths)
	if total == 0 {
		total = len(env.scen.Paths)
	}

	progressCfg := logprogress.QuietProgressConfig()
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress && isTerminal(os.Stderr) {
		progressCfg = logprogress.DefaultProgressConfig()
	}
	indicator := logprogress.NewProgressIndicator(os.Stderr, env.scen.ID, total, progressCfg)

	reg := metrics.NewRegistry()
	svc := application.NewService(env.cfg, env.inputs, env.scen, application.Deps{
		Metrics:  reg,
		Sink:     env.sink(reg),
		Progress: indicator.Observe,
	})

	c, err := svc.Run(ctx, env.cfg.Paths)
	if err != nil {
		indicator.Fail(err.Error())
		return err
	}
	indicator.Finish(c)
	printCompletion(cmd, env, c)

	if c.Status == projection.StatusCrashed {
		return fmt.Errorf("run %s crashed: %w", c.RunID, c.Err)
	}
	return nil
}

func printCompletion(cmd *cobra.Command, env *environment, c projection.Completion) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:      %s\n", c.RunID)
	fmt.Fprintf(out, "scenario: %s\n", c.Scenario)
	fmt.Fprintf(out, "status:   %s\n", c.Status)
	fmt.Fprintf(out, "paths:    %d\n", len(c.Paths))
	fmt.Fprintf(out, "elapsed:  %v\n", c.Finished.Sub(c.Started).Round(time.Millisecond))
	if env.cfg.Output != "" && len(c.Paths) > 0 {
		fmt.Fprintf(out, "records:  %s/%s.jsonl\n", env.cfg.Output, c.RunID)
	}

	if len(c.Paths) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%6s %14s %14s %14s %14s\n", "path", "equity", "free_rfb", "suaf", "balance_gap")
	for _, p := range c.Paths {
		last := p.Aggregate(p.Horizon())
		if last == nil {
			continue
		}
		fmt.Fprintf(out, "%6d %14.2f %14.2f %14.2f %14.6f\n", p.Path, last.Equity, last.FreeRfB, last.Suaf, last.BalanceGap)
	}
}

// signalContext is shared by long-running commands
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
