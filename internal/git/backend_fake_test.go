package git

import (
	"context"
	"errors"

	gitbackend "github.com/thiagokokada/gitstat/internal/git/backend"
)

type fakeBackend struct {
	repoPath string

	stagedChangesFunc    func() ([]gitbackend.Change, error)
	unstagedChangesFunc  func() ([]gitbackend.Change, error)
	untrackedPathsFunc   func() ([]string, error)
	indexEntriesFunc     func() ([]gitbackend.IndexEntry, error)
	diffTextFunc         func(path string, staged bool) (string, error)
	readBlobFunc         func(hash string) ([]byte, error)
	readWorktreeFileFunc func(path string) ([]byte, error)

	lastDiffPath    string
	lastStagedParam *bool
	blobReads       []string
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) StagedChanges(context.Context) ([]gitbackend.Change, error) {
	if f.stagedChangesFunc != nil {
		return f.stagedChangesFunc()
	}
	return nil, nil
}

func (f *fakeBackend) UnstagedChanges(context.Context) ([]gitbackend.Change, error) {
	if f.unstagedChangesFunc != nil {
		return f.unstagedChangesFunc()
	}
	return nil, nil
}

func (f *fakeBackend) UntrackedPaths(context.Context) ([]string, error) {
	if f.untrackedPathsFunc != nil {
		return f.untrackedPathsFunc()
	}
	return nil, nil
}

func (f *fakeBackend) IndexEntries(context.Context) ([]gitbackend.IndexEntry, error) {
	if f.indexEntriesFunc != nil {
		return f.indexEntriesFunc()
	}
	return nil, errors.New("unexpected IndexEntries call")
}

func (f *fakeBackend) DiffText(_ context.Context, path string, staged bool) (string, error) {
	f.lastDiffPath = path
	f.lastStagedParam = &staged
	if f.diffTextFunc != nil {
		return f.diffTextFunc(path, staged)
	}
	return "", errors.New("unexpected DiffText call")
}

func (f *fakeBackend) ReadBlob(_ context.Context, hash string) ([]byte, error) {
	f.blobReads = append(f.blobReads, hash)
	if f.readBlobFunc != nil {
		return f.readBlobFunc(hash)
	}
	return nil, errors.New("unexpected ReadBlob call")
}

func (f *fakeBackend) ReadWorktreeFile(_ context.Context, path string) ([]byte, error) {
	if f.readWorktreeFileFunc != nil {
		return f.readWorktreeFileFunc(path)
	}
	return nil, errors.New("unexpected ReadWorktreeFile call")
}

// blobStore serves ReadBlob from a fixed hash to content map.
func blobStore(blobs map[string]string) func(hash string) ([]byte, error) {
	return func(hash string) ([]byte, error) {
		data, ok := blobs[hash]
		if !ok {
			return nil, errors.New("no such blob " + hash)
		}
		return []byte(data), nil
	}
}
