package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quintaverde/pai/pkg/pai/snapshots"
)

// newSnapshotsCmd creates the `pai snapshots` command group. The poller
// usually runs inside `pai serve`, but it can also run standalone on a host
// closer to the cameras.
func newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Camera snapshot poller",
		Long: `Fetch camera thumbnails and upload them to object storage.

Examples:
  pai snapshots poll    # single poll, then exit
  pai snapshots run     # scheduled daemon`,
	}

	cmd.AddCommand(
		newSnapshotsPollCmd(),
		newSnapshotsRunCmd(),
	)
	return cmd
}

func newSnapshotsPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run a single snapshot poll",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			poller, err := snapshots.NewPoller(cfg.Snapshots, logger)
			if err != nil {
				return err
			}
			return poller.PollOnce(context.Background())
		},
	}
}

func newSnapshotsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the poller on its schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			poller, err := snapshots.NewPoller(cfg.Snapshots, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := poller.Start(ctx); err != nil {
				return err
			}

			fmt.Println("Snapshot poller running. Press Ctrl+C to stop.")
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			poller.Stop()
			return nil
		},
	}
}
