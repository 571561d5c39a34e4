package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/git"
)

func newStatusCmd(opts *options) *cobra.Command {
	var unchanged bool
	cmd := &cobra.Command{
		Use:   "status [path...]",
		Short: "List changed paths, one line per staged or unstaged change",
		Long: `List changed paths, one line per record:

  S modified path   change staged in the index
  - modified path   change in the working tree only

A path with both staged and unstaged changes is listed twice, unstaged first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := opts.openService(ctx, unchanged || opts.cfg.ShowUnchanged)
			if err != nil {
				return err
			}
			st, err := svc.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return writeStatus(out, st.Records())
			}
			for _, arg := range args {
				rel, err := svc.RelPath(arg)
				if err != nil {
					return err
				}
				if l, ok := st.Lookup(rel); ok {
					if err := writeStatus(out, l.Records()); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unchanged, "unchanged", false, "also list tracked paths without changes")
	return cmd
}

func writeStatus(w io.Writer, records []git.Record) error {
	for _, r := range records {
		marker := "-"
		if r.Staged {
			marker = "S"
		}
		if _, err := fmt.Fprintf(w, "%s %-9s %s\n", marker, r.Kind, r.Path); err != nil {
			return err
		}
	}
	return nil
}
