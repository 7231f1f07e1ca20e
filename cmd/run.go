package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates the 'run' subcommand: one full pipeline execution
// across every configured target.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every scraping job once and write the execution report",
		RunE:  runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := appInstance.Orchestrator().RunAll(ctx)
	for target, ok := range results {
		appInstance.Logger().Info("job outcome",
			zap.String("target", target),
			zap.Bool("success", ok),
		)
	}
	return nil
}
