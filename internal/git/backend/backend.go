package backend

import (
	"context"
	"fmt"
)

// Backend abstracts access to repository data.
//
// The default implementation shells out to the git executable; the native
// implementation reads the repository with go-git. Callers only see raw
// listings, diff text and content, so either can be swapped in.
type Backend interface {
	RepoPath() string

	// StagedChanges lists index changes relative to HEAD.
	StagedChanges(ctx context.Context) ([]Change, error)
	// UnstagedChanges lists working tree changes relative to the index.
	UnstagedChanges(ctx context.Context) ([]Change, error)
	UntrackedPaths(ctx context.Context) ([]string, error)
	// IndexEntries lists every path in the index, once per path.
	IndexEntries(ctx context.Context) ([]IndexEntry, error)

	// DiffText returns the unified diff for a single path, either index vs
	// HEAD (staged) or working tree vs index.
	DiffText(ctx context.Context, path string, staged bool) (string, error)
	ReadBlob(ctx context.Context, hash string) ([]byte, error)
	// ReadWorktreeFile returns nil, nil when the file does not exist.
	ReadWorktreeFile(ctx context.Context, path string) ([]byte, error)
}

// Kind selects a Backend implementation.
type Kind string

const (
	KindCLI    Kind = "cli"
	KindNative Kind = "native"
)

// Open returns a backend of the given kind rooted at repoPath.
func Open(ctx context.Context, kind Kind, repoPath, gitBinary string) (Backend, error) {
	switch kind {
	case KindNative:
		return OpenNative(repoPath)
	case KindCLI, "":
		return OpenCLI(ctx, repoPath, gitBinary)
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", kind, KindCLI, KindNative)
	}
}
