package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/infrastructure/db"
	"github.com/sawpanic/almrun/internal/interfaces/output"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the stored records of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().String("kind", "aggregate", "Record kind to export (aggregate|cohort|fund|ladder, empty for all)")
	cmd.Flags().String("output", "", "Directory holding the run records (overrides the config file)")
	cmd.Flags().String("dest", "", "Destination directory (defaults to the records directory)")
	cmd.Flags().Int("precision", -1, "Decimal places in CSV values, -1 for exact")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRunConfig(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output, _ = cmd.Flags().GetString("output")
	}

	runID := args[0]
	rows, err := db.NewPathStore(cfg.Output, nil).ReadFile(runID)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	dest, _ := cmd.Flags().GetString("dest")
	if dest == "" {
		dest = cfg.Output
	}
	kind, _ := cmd.Flags().GetString("kind")
	emitter := output.NewEmitter()
	emitter.Precision, _ = cmd.Flags().GetInt("precision")

	name := kind
	if name == "" {
		name = "all"
	}
	csvPath := filepath.Join(dest, fmt.Sprintf("%s.%s.csv", runID, name))
	if err := emitter.EmitCSV(csvPath, rows, kind); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "records: %d\n", len(rows))
	fmt.Fprintf(out, "csv:     %s\n", csvPath)
	return nil
}
