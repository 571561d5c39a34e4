package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultGitBinary = "git"

var ErrRepoNotSet = errors.New("repository root not set")

type gitCLI struct {
	path string
	bin  string
}

// OpenCLI returns a Backend that shells out to the git executable. An empty
// gitBinary means "git" from PATH.
func OpenCLI(ctx context.Context, repoPath, gitBinary string) (Backend, error) {
	if gitBinary == "" {
		gitBinary = defaultGitBinary
	}
	if err := ensureMinGitVersion(gitBinary); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs, bin: gitBinary}
	root, err := tmp.runGitCommand(ctx, []string{"rev-parse", "--show-toplevel"}, false, "git rev-parse")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	return &gitCLI{path: root, bin: gitBinary}, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) runGitCommand(ctx context.Context, args []string, allowExit1 bool, label string) (string, error) {
	if g == nil || g.path == "" {
		return "", ErrRepoNotSet
	}
	cmdArgs := append([]string{"-C", g.path}, args...)
	slog.Debug("run git", slog.String("bin", g.bin), slog.Any("args", cmdArgs))
	cmd := exec.CommandContext(ctx, g.bin, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// exit code 1 without stderr means "differences found" or "nothing matched"
		} else {
			if stderr.Len() > 0 {
				return "", fmt.Errorf("%s: %v: %s", label, err, strings.TrimSpace(stderr.String()))
			}
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
	return stdout.String(), nil
}
