package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/watch"
)

func newWatchCmd(opts *options) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print status again whenever the repository changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := opts.openService(ctx, opts.cfg.ShowUnchanged)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("delay") {
				delay = opts.cfg.Watch.Delay
			}
			out := cmd.OutOrStdout()
			w := watch.New(svc.RepoPath(), delay, func(ctx context.Context) {
				st, err := svc.Status(ctx)
				if err != nil {
					slog.Error("status", slog.Any("error", err))
					return
				}
				fmt.Fprintf(out, "# %s (%d paths)\n", time.Now().Format(time.TimeOnly), st.Len())
				if err := writeStatus(out, st.Records()); err != nil {
					slog.Error("write status", slog.Any("error", err))
				}
			})
			slog.Debug("watching repository", slog.String("path", svc.RepoPath()), slog.Duration("delay", delay))
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "quiet period before status is printed again")
	return cmd
}
