package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/buildinfo"
	gitbackend "github.com/thiagokokada/gitstat/internal/git/backend"
)

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gitstat %s\n", buildinfo.String())
			if gitbackend.Kind(opts.cfg.Backend) != gitbackend.KindCLI {
				return nil
			}
			bin := opts.cfg.GitBinary
			if bin == "" {
				bin = "git"
			}
			v, err := gitbackend.GitVersion(bin)
			if err != nil {
				slog.Debug("git version", slog.Any("error", err))
				return nil
			}
			fmt.Fprintf(out, "git %s (minimum %s)\n", v, gitbackend.MinGitVersion())
			return nil
		},
	}
}
