package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// diffConfig pins settings that would otherwise change the shape of
// "git diff" output under a user's configuration.
var diffConfig = []string{
	"-c", "diff.noprefix=false",
	"-c", "diff.mnemonicPrefix=false",
	"-c", "core.quotePath=true",
}

func (g *gitCLI) headTree(ctx context.Context) (string, error) {
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return "", err
	}
	if hash := strings.TrimSpace(out); hash != "" {
		return hash, nil
	}
	// unborn branch: everything in the index is an addition
	return EmptyTreeHash, nil
}

func (g *gitCLI) StagedChanges(ctx context.Context) ([]Change, error) {
	base, err := g.headTree(ctx)
	if err != nil {
		return nil, err
	}
	out, err := g.runGitCommand(ctx,
		[]string{"diff-index", "--cached", "--raw", "-z", "--no-renames", "--no-abbrev", base},
		false,
		"git diff-index",
	)
	if err != nil {
		return nil, err
	}
	changes, err := parseRawDiff(out)
	if err != nil {
		return nil, fmt.Errorf("parse git diff-index: %w", err)
	}
	return changes, nil
}

func (g *gitCLI) UnstagedChanges(ctx context.Context) ([]Change, error) {
	// diff-files trusts stat data; refresh first so touched but unchanged
	// files are not reported.
	if _, err := g.runGitCommand(ctx, []string{"update-index", "-q", "--refresh"}, true, "git update-index"); err != nil {
		slog.Debug("index refresh failed", slog.Any("error", err))
	}
	out, err := g.runGitCommand(ctx,
		[]string{"diff-files", "--raw", "-z", "--no-renames", "--no-abbrev"},
		false,
		"git diff-files",
	)
	if err != nil {
		return nil, err
	}
	changes, err := parseRawDiff(out)
	if err != nil {
		return nil, fmt.Errorf("parse git diff-files: %w", err)
	}
	return changes, nil
}

func (g *gitCLI) UntrackedPaths(ctx context.Context) ([]string, error) {
	out, err := g.runGitCommand(ctx, []string{"ls-files", "-z", "--others", "--exclude-standard"}, false, "git ls-files")
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func (g *gitCLI) IndexEntries(ctx context.Context) ([]IndexEntry, error) {
	out, err := g.runGitCommand(ctx, []string{"ls-files", "-z", "--stage"}, false, "git ls-files")
	if err != nil {
		return nil, err
	}
	entries, err := parseLsFilesStage(out)
	if err != nil {
		return nil, fmt.Errorf("parse git ls-files: %w", err)
	}
	return entries, nil
}

func (g *gitCLI) DiffText(ctx context.Context, path string, staged bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path not specified")
	}
	args := append([]string{}, diffConfig...)
	args = append(args, "diff", "--no-color", "--no-ext-diff")
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", path)
	return g.runGitCommand(ctx, args, true, "git diff")
}

func (g *gitCLI) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	hash = strings.TrimSpace(hash)
	if IsZeroHash(hash) {
		return nil, fmt.Errorf("blob hash not specified")
	}
	out, err := g.runGitCommand(ctx, []string{"cat-file", "blob", hash}, false, "git cat-file")
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (g *gitCLI) ReadWorktreeFile(_ context.Context, path string) ([]byte, error) {
	return readWorktreeFile(g.RepoPath(), path)
}

// parseRawDiff parses "--raw -z" output:
//
//	:<src mode> <dst mode> <src hash> <dst hash> <status>NUL<path>NUL
//
// Copy and rename entries carry a second path.
func parseRawDiff(out string) ([]Change, error) {
	fields := strings.Split(out, "\x00")
	var changes []Change
	for i := 0; i < len(fields); i++ {
		meta := fields[i]
		if meta == "" {
			continue
		}
		if meta[0] != ':' {
			return nil, fmt.Errorf("unexpected raw diff field: %q", meta)
		}
		parts := strings.Fields(meta[1:])
		if len(parts) != 5 || parts[4] == "" {
			return nil, fmt.Errorf("unexpected raw diff header: %q", meta)
		}
		ch := Change{
			SrcMode: parts[0],
			DstMode: parts[1],
			SrcHash: parts[2],
			DstHash: parts[3],
			Status:  parts[4][0],
		}
		if i+1 >= len(fields) || fields[i+1] == "" {
			return nil, fmt.Errorf("raw diff header without path: %q", meta)
		}
		i++
		ch.Path = fields[i]
		if ch.Status == 'R' || ch.Status == 'C' {
			if i+1 >= len(fields) || fields[i+1] == "" {
				return nil, fmt.Errorf("raw diff %c entry without destination: %q", ch.Status, meta)
			}
			i++
			ch.Path = fields[i]
		}
		changes = append(changes, ch)
	}
	return changes, nil
}

func splitNUL(out string) []string {
	var paths []string
	for p := range strings.SplitSeq(out, "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// parseLsFilesStage parses "ls-files -z --stage" output:
//
//	<mode> <hash> <stage>TAB<path>NUL
//
// Unmerged paths appear once per stage; the first entry wins.
func parseLsFilesStage(out string) ([]IndexEntry, error) {
	var entries []IndexEntry
	seen := map[string]struct{}{}
	for _, rec := range splitNUL(out) {
		meta, path, ok := strings.Cut(rec, "\t")
		if !ok || path == "" {
			return nil, fmt.Errorf("unexpected ls-files record: %q", rec)
		}
		parts := strings.Fields(meta)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected ls-files record: %q", rec)
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		entries = append(entries, IndexEntry{Path: path, Mode: parts[0], Hash: parts[1]})
	}
	return entries, nil
}
