package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "almrun"
	version = "v0.4.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Stochastic ALM projection of a life insurance portfolio",
		Version: version,
		Long: `almrun projects a life insurer's balance sheet along stochastic capital market
scenarios: insurance cohorts, the existing bond portfolio, asset management,
profit participation, taxes and equity, year by year for every path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			jsonLogs, _ := cmd.Flags().GetBool("json-logs")
			return setupLogging(level, jsonLogs)
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "configs/almrun.yaml", "Run configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Force JSON logs even on a terminal")

	rootCmd.AddCommand(newProjectCmd(), newValidateCmd(), newServeCmd(), newExportCmd())
	return rootCmd
}

// setupLogging uses the console writer on a terminal and JSON otherwise
func setupLogging(level string, jsonLogs bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if !jsonLogs && isTerminal(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
