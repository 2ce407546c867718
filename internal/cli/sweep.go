package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kaiwa/pkg/retention"
)

var sweepWatch bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Prune old exchange threads",
	Long: `Delete the oldest exchange threads beyond the configured keep count. The
top-level conversation is never pruned. With --watch, keep running and sweep
on the configured cron schedule until interrupted.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepWatch, "watch", false, "keep running and sweep on the configured schedule")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	sweeper, err := retention.New(retention.Config{
		Store:    rt.store,
		Schedule: rt.cfg.Retention.Schedule,
		Keep:     rt.cfg.Retention.KeepThreads,
		Logger:   rt.logger.GetZerolog(),
	})
	if err != nil {
		return err
	}

	if !sweepWatch {
		deleted, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d exchange thread(s)\n", deleted)
		return nil
	}

	if err := sweeper.Start(); err != nil {
		return err
	}
	fmt.Printf("Sweeping on schedule %q, press Ctrl-C to stop\n", rt.cfg.Retention.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	sweeper.Stop()
	return nil
}
