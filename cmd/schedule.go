package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newScheduleCmd creates the 'schedule' subcommand: the daemon form of
// the pipeline, with the status API alongside the interval loop.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on an interval with the status API",
		RunE:  runScheduleCommand,
	}
}

func runScheduleCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 2)
	go func() {
		errc <- appInstance.StatusServer().Serve(ctx, appInstance.Config().API.ListenAddr)
	}()
	go func() {
		errc <- appInstance.Scheduler().Run(ctx)
	}()

	err = <-errc
	stop()
	if serr := <-errc; err == nil {
		err = serr
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appInstance.Logger().Info("scheduler shut down")
	return nil
}
