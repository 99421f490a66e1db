package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/almrun/internal/application"
	httpapi "github.com/sawpanic/almrun/internal/interfaces/http"
	"github.com/sawpanic/almrun/internal/metrics"
	"github.com/sawpanic/almrun/internal/projection"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve runs over HTTP",
		Long: `Prepares the configured scenario and serves /health, /metrics and /runs. POST /runs
launches a projection, DELETE /runs/{id} aborts it and /runs/{id}/progress streams
progress over a websocket.`,
		RunE: runServe,
	}
	addRunFlags(cmd.Flags())
	cmd.Flags().String("addr", "", "Listen address (overrides the config file)")
	cmd.Flags().Bool("run", false, "Launch one run on start-up")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := loadEnvironment(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()
	if cmd.Flags().Changed("addr") {
		env.cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}

	reg := metrics.NewRegistry()
	runs := projection.NewRegistry(0)
	hub := httpapi.NewProgressHub(runs)
	svc := application.NewService(env.cfg, env.inputs, env.scen, application.Deps{
		Runs:      runs,
		Metrics:   reg,
		Sink:      env.sink(reg),
		Publisher: hub,
	})
	if err := svc.Prepare(); err != nil {
		return err
	}

	server, err := httpapi.NewServer(env.cfg.Server, httpapi.Deps{
		Runs:     runs,
		Hub:      hub,
		Metrics:  reg.Handler(),
		Database: env.db.Health(),
		Launcher: svc,
		Version:  version,
	})
	if err != nil {
		return err
	}

	if launch, _ := cmd.Flags().GetBool("run"); launch {
		id, err := svc.Launch(env.cfg.Paths)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", id).Msg("Start-up run launched")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Active run did not stop in time")
	}
	return server.Shutdown(shutdownCtx)
}
