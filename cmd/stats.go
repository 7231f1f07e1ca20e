package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the 'stats' subcommand.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print scraping statistics from the database",
		RunE:  runStatsCommand,
	}
}

func runStatsCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := appInstance.Store().Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	targets := make([]string, 0, len(stats.TotalRecords))
	for target := range stats.TotalRecords {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Scraping Statistics")
	fmt.Fprintln(out, "===================")
	for _, target := range targets {
		fmt.Fprintf(out, "Total %s: %d\n", target, stats.TotalRecords[target])
	}
	for _, target := range targets {
		last := "never"
		if ts, ok := stats.LastScrape[target]; ok && !ts.IsZero() {
			last = ts.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "Last %s scrape: %s\n", target, last)
	}
	fmt.Fprintf(out, "Total runs: %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Success rate: %.1f%%\n", stats.SuccessRate)
	return nil
}
