package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/git"
)

func newDiffCmd(opts *options) *cobra.Command {
	var stat, stagedOnly, unstagedOnly bool
	cmd := &cobra.Command{
		Use:   "diff <path>",
		Short: "Show the diff of each change recorded for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := opts.openService(ctx, false)
			if err != nil {
				return err
			}
			l, err := lookupPath(ctx, svc, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			h := opts.highlighter(out)
			for _, r := range l.Records() {
				if (stagedOnly && !r.Staged) || (unstagedOnly && r.Staged) {
					continue
				}
				d, err := svc.Diff(ctx, r)
				if err != nil {
					return err
				}
				if d == nil {
					continue
				}
				if stat {
					err = writeDiffStat(out, r, d)
				} else {
					err = h.Diff(out, formatDiff(d))
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&stat, "stat", false, "print insertion and deletion counts instead of the patch")
	flags.BoolVar(&stagedOnly, "staged", false, "only the change staged in the index")
	flags.BoolVar(&unstagedOnly, "unstaged", false, "only the change in the working tree")
	cmd.MarkFlagsMutuallyExclusive("staged", "unstaged")
	return cmd
}

func writeDiffStat(w io.Writer, r git.Record, d *git.Diff) error {
	label := "unstaged"
	if r.Staged {
		label = "staged"
	}
	if !d.HasPatch() {
		_, err := fmt.Fprintf(w, "%s (%s) | no content change\n", d.Path(), label)
		return err
	}
	_, err := fmt.Fprintf(w, "%s (%s) | +%d -%d\n", d.Path(), label, d.Insertions(), d.Deletions())
	return err
}

// formatDiff renders a Diff back into a "git diff" style block.
func formatDiff(d *git.Diff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", d.APath, d.BPath)
	switch {
	case d.NewFile:
		fmt.Fprintf(&b, "new file mode %s\n", d.BMode)
	case d.DeletedFile:
		fmt.Fprintf(&b, "deleted file mode %s\n", d.AMode)
	case d.AMode != "" && d.BMode != "" && d.AMode != d.BMode:
		fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", d.AMode, d.BMode)
	}
	if d.ASha != "" || d.BSha != "" {
		fmt.Fprintf(&b, "index %s..%s", shaOrZero(d.ASha), shaOrZero(d.BSha))
		if d.AMode != "" && d.AMode == d.BMode {
			fmt.Fprintf(&b, " %s", d.BMode)
		}
		b.WriteByte('\n')
	}
	b.WriteString(d.Patch)
	return b.String()
}

func shaOrZero(sha string) string {
	if sha == "" {
		return "0000000"
	}
	return sha
}
