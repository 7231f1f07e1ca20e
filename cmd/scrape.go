package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newScrapeCmd creates the 'scrape' subcommand for a single target.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <target>",
		Short: "Run one scraping job for the named target",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := args[0]
	if !appInstance.Runner().RunJob(ctx, target) {
		return fmt.Errorf("scraping job for %q failed", target)
	}
	return nil
}
