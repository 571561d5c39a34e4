package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstat/internal/config"
	"github.com/thiagokokada/gitstat/internal/git"
	gitbackend "github.com/thiagokokada/gitstat/internal/git/backend"
	"github.com/thiagokokada/gitstat/internal/highlight"
)

// ErrNoContent is returned when the requested content does not exist. The
// caller exits with status 1 without printing it.
var ErrNoContent = errors.New("no content")

// options are the global flags merged over the config file.
type options struct {
	repo       string
	configPath string
	backend    string
	color      string
	theme      string
	verbose    bool

	cfg config.Config
}

func Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&options{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitstat",
		Short: "Inspect working tree, index and HEAD state of a git repository",
		Long: `gitstat classifies every changed path of a git repository as untracked,
added, modified or deleted, separately for staged and unstaged changes, and
shows the diff or content of each stage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
			return opts.load(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.repo, "repo", "C", ".", "path to the repository")
	flags.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gitstat/config.toml)")
	flags.StringVar(&opts.backend, "backend", "", "repository backend: cli or native")
	flags.StringVar(&opts.color, "color", "", "color output: auto, always or never")
	flags.StringVar(&opts.theme, "theme", "", "color theme: auto, light or dark")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newStatusCmd(opts),
		newDiffCmd(opts),
		newBlobCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// load reads the config file and applies flags that were set explicitly.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = o.backend
	}
	if flags.Changed("color") {
		cfg.Color = o.color
	}
	if flags.Changed("theme") {
		cfg.Theme = o.theme
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func (o *options) openService(ctx context.Context, includeUnchanged bool) (*git.Service, error) {
	svc, err := git.Open(ctx, o.repo, git.Options{
		Backend:          gitbackend.Kind(o.cfg.Backend),
		GitBinary:        o.cfg.GitBinary,
		IncludeUnchanged: includeUnchanged,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (o *options) highlighter(out io.Writer) *highlight.Highlighter {
	return highlight.New(out,
		highlight.ColorModeFromString(o.cfg.Color),
		highlight.ThemePreferenceFromString(o.cfg.Theme),
	)
}

func lookupPath(ctx context.Context, svc *git.Service, path string) (git.Lookup, error) {
	l, ok, err := svc.StatusOf(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoContent)
	}
	return l, nil
}
