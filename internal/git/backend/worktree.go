package backend

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// readWorktreeFile reads path (slash separated, relative to root) the way git
// would hash it: symlinks yield their target, directories (submodules) and
// missing files yield nil.
func readWorktreeFile(root, path string) ([]byte, error) {
	if root == "" {
		return nil, ErrRepoNotSet
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	switch {
	case info.IsDir():
		return nil, nil
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(full)
		if err != nil {
			return nil, err
		}
		return []byte(filepath.ToSlash(target)), nil
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
