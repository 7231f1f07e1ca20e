package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newExportCmd creates the 'export' subcommand: refresh the CSV
// exports of every configured target from the database.
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export every target's table to CSV from the database",
		RunE:  runExportCommand,
	}
}

func runExportCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	cfg := appInstance.Config()
	for _, target := range cfg.TargetSeq {
		path := filepath.Join(cfg.Output.Dir, target+"_latest.csv")
		written, err := appInstance.Store().ExportTable(cmd.Context(), target, path)
		if err != nil {
			return fmt.Errorf("export %s: %w", target, err)
		}
		appInstance.Logger().Info("exported table",
			zap.String("target", target),
			zap.String("path", written),
		)
	}
	return nil
}
