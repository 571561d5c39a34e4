package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/git"
)

func newBlobCmd(opts *options) *cobra.Command {
	var stageName string
	cmd := &cobra.Command{
		Use:   "blob <path>",
		Short: "Print a path's content at the file, index or repo stage",
		Long: `Print a path's content at one stage:

  file   the working tree file
  index  the staged content
  repo   the content in HEAD

Without --stage, staged changes print the index content and everything else
prints the working tree file. Exits with status 1 and prints nothing when the
stage holds no content for the path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stage *git.Stage
			if stageName != "" {
				s, err := git.ParseStage(stageName)
				if err != nil {
					return err
				}
				stage = &s
			}
			ctx := cmd.Context()
			svc, err := opts.openService(ctx, true)
			if err != nil {
				return err
			}
			l, err := lookupPath(ctx, svc, args[0])
			if err != nil {
				return err
			}
			r := recordForStage(l, stage)
			var b *git.Blob
			if stage != nil {
				b, err = svc.Blob(ctx, r, *stage)
			} else {
				b, err = svc.DefaultBlob(ctx, r)
			}
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("%s: %w", r.Path, ErrNoContent)
			}
			out := cmd.OutOrStdout()
			return opts.highlighter(out).File(out, r.Path, b.Data)
		},
	}
	cmd.Flags().StringVar(&stageName, "stage", "", "stage to read: file, index or repo")
	return cmd
}

// recordForStage picks the record of l that holds content at stage. Without
// an explicit stage the first record wins, so a Pair defaults to the working
// tree.
func recordForStage(l git.Lookup, stage *git.Stage) git.Record {
	records := l.Records()
	if stage == nil {
		return records[0]
	}
	for _, r := range records {
		switch *stage {
		case git.StageIndex:
			if r.IndexHash != "" {
				return r
			}
		case git.StageRepo:
			if r.RepoHash != "" {
				return r
			}
		default:
			return r
		}
	}
	return records[0]
}
