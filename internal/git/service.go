package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	gitbackend "github.com/thiagokokada/gitstat/internal/git/backend"
)

// Options configure Open.
type Options struct {
	Backend   gitbackend.Kind
	GitBinary string
	// IncludeUnchanged adds a record for every clean index entry to Status.
	IncludeUnchanged bool
}

// Service reconciles a repository's listings into a Status and resolves
// records against the same backend.
type Service struct {
	backend          gitbackend.Backend
	includeUnchanged bool
}

func Open(ctx context.Context, repoPath string, opts Options) (*Service, error) {
	kind := opts.Backend
	if kind == "" {
		kind = gitbackend.KindCLI
	}
	b, err := gitbackend.Open(ctx, kind, repoPath, opts.GitBinary)
	if err != nil {
		return nil, err
	}
	slog.Debug("opened repository",
		slog.String("path", b.RepoPath()),
		slog.String("backend", string(kind)),
	)
	svc := NewWithBackend(b)
	svc.includeUnchanged = opts.IncludeUnchanged
	return svc, nil
}

func NewWithBackend(b gitbackend.Backend) *Service {
	return &Service{backend: b}
}

func (s *Service) RepoPath() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.RepoPath()
}

// Source exposes the backend for Record and BlobRef calls.
func (s *Service) Source() Source {
	return s.backend
}

func (s *Service) checkBackend() error {
	if s.backend == nil || s.backend.RepoPath() == "" {
		return gitbackend.ErrRepoNotSet
	}
	return nil
}

// Status lists the repository and classifies every changed path.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	if err := s.checkBackend(); err != nil {
		return nil, err
	}
	ctx = gitbackend.WithQuery(ctx)
	var l Listings
	var err error
	if l.Staged, err = s.backend.StagedChanges(ctx); err != nil {
		return nil, fmt.Errorf("list staged changes: %w", err)
	}
	if l.Unstaged, err = s.backend.UnstagedChanges(ctx); err != nil {
		return nil, fmt.Errorf("list unstaged changes: %w", err)
	}
	if l.Untracked, err = s.backend.UntrackedPaths(ctx); err != nil {
		return nil, fmt.Errorf("list untracked files: %w", err)
	}
	if s.includeUnchanged {
		if l.Tracked, err = s.backend.IndexEntries(ctx); err != nil {
			return nil, fmt.Errorf("list index entries: %w", err)
		}
	}
	slog.Debug("status listings",
		slog.Int("staged", len(l.Staged)),
		slog.Int("unstaged", len(l.Unstaged)),
		slog.Int("untracked", len(l.Untracked)),
		slog.Int("tracked", len(l.Tracked)),
	)
	return Classify(l), nil
}

// StatusOf classifies the repository and looks up a single path. The path
// may be absolute or relative to the repository root.
func (s *Service) StatusOf(ctx context.Context, path string) (Lookup, bool, error) {
	rel, err := s.RelPath(path)
	if err != nil {
		return nil, false, err
	}
	st, err := s.Status(ctx)
	if err != nil {
		return nil, false, err
	}
	l, ok := st.Lookup(rel)
	return l, ok, nil
}

// RelPath converts path to the slash separated, root relative form used as
// Status keys.
func (s *Service) RelPath(path string) (string, error) {
	if err := s.checkBackend(); err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path not specified")
	}
	root := s.backend.RepoPath()
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("path %s: %w", path, err)
		}
		path = rel
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if path == ".." || strings.HasPrefix(path, "../") {
		return "", fmt.Errorf("path %s is outside repository %s", path, root)
	}
	return path, nil
}

// Diff returns the parsed diff for r, or nil if r has no diff.
func (s *Service) Diff(ctx context.Context, r Record) (*Diff, error) {
	if err := s.checkBackend(); err != nil {
		return nil, err
	}
	return r.Diff(ctx, s.backend)
}

// Blob resolves r's content at stage.
func (s *Service) Blob(ctx context.Context, r Record, stage Stage) (*Blob, error) {
	if err := s.checkBackend(); err != nil {
		return nil, err
	}
	return r.Blob(ctx, s.backend, stage)
}

// DefaultBlob resolves r's content at its default stage.
func (s *Service) DefaultBlob(ctx context.Context, r Record) (*Blob, error) {
	return s.Blob(ctx, r, r.DefaultStage())
}
