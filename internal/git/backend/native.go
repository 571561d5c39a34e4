package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/pmezard/go-difflib/difflib"
)

const abbrevLen = 7

type native struct {
	repo *gitlib.Repository
	root string
}

// OpenNative returns a Backend reading the repository with go-git.
func OpenNative(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &native{repo: repo, root: wt.Filesystem.Root()}, nil
}

func (n *native) RepoPath() string {
	if n == nil {
		return ""
	}
	return n.root
}

// snapshot is the state shared by the listing methods.
type snapshot struct {
	status gitlib.Status
	index  *gitindex.Index
	head   *object.Tree
}

// Swapped in tests.
var (
	worktreeStatus = (*gitlib.Worktree).Status
	blobObjects    = (*gitlib.Repository).BlobObjects
)

// snapshot reads status, index and HEAD, once per WithQuery context.
func (n *native) snapshot(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := queryFrom(ctx)
	if q == nil {
		return n.readSnapshot()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.snap != nil {
		return q.snap, nil
	}
	snap, err := n.readSnapshot()
	if err != nil {
		return nil, err
	}
	q.snap = snap
	return snap, nil
}

func (n *native) readSnapshot() (*snapshot, error) {
	wt, err := n.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := worktreeStatus(wt)
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	head, err := n.headTree()
	if err != nil {
		return nil, err
	}
	return &snapshot{status: status, index: idx, head: head}, nil
}

func (n *native) headTree() (*object.Tree, error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := n.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	return commit.Tree()
}

func (n *native) StagedChanges(ctx context.Context) ([]Change, error) {
	snap, err := n.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var changes []Change
	for _, path := range sortedPaths(snap.status) {
		st := snap.status[path]
		if st.Staging == gitlib.Unmodified {
			continue
		}
		status := byte(st.Staging)
		if st.Staging == gitlib.Untracked {
			// go-git reports a staged removal whose file is back on disk as
			// untracked; recover the removal from HEAD.
			if f, err := fileFromTree(snap.head, path); err != nil || f == nil {
				if err != nil {
					return nil, err
				}
				continue
			}
			status = byte(gitlib.Deleted)
		}
		ch := Change{Path: path, Status: status, SrcHash: ZeroHash, DstHash: ZeroHash, SrcMode: modeString(0), DstMode: modeString(0)}
		if f, err := fileFromTree(snap.head, path); err != nil {
			return nil, err
		} else if f != nil {
			ch.SrcHash, ch.SrcMode = f.Hash.String(), modeString(f.Mode)
		}
		if e, err := entryFromIndex(snap.index, path); err != nil {
			return nil, err
		} else if e != nil {
			ch.DstHash, ch.DstMode = e.Hash.String(), modeString(e.Mode)
		}
		ch.Status = normalizeStatus(ch)
		changes = append(changes, ch)
	}
	return changes, nil
}

func (n *native) UnstagedChanges(ctx context.Context) ([]Change, error) {
	snap, err := n.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var changes []Change
	for _, path := range sortedPaths(snap.status) {
		st := snap.status[path]
		if st.Worktree == gitlib.Unmodified || st.Worktree == gitlib.Untracked {
			continue
		}
		e, err := entryFromIndex(snap.index, path)
		if err != nil {
			return nil, err
		}
		if e == nil {
			// staged deletion; nothing left to compare the worktree against
			continue
		}
		ch := Change{
			Path:    path,
			Status:  byte(st.Worktree),
			SrcHash: e.Hash.String(),
			SrcMode: modeString(e.Mode),
			DstHash: ZeroHash,
			DstMode: modeString(0),
		}
		if st.Worktree != gitlib.Deleted {
			if mode, ok := n.worktreeMode(path); ok {
				ch.DstMode = modeString(mode)
			}
		}
		changes = append(changes, ch)
	}
	return changes, nil
}

func (n *native) UntrackedPaths(ctx context.Context) ([]string, error) {
	snap, err := n.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, path := range sortedPaths(snap.status) {
		if snap.status[path].Worktree == gitlib.Untracked {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (n *native) IndexEntries(ctx context.Context) ([]IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	entries := make([]IndexEntry, 0, len(idx.Entries))
	seen := make(map[string]struct{}, len(idx.Entries))
	for _, e := range idx.Entries {
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		entries = append(entries, IndexEntry{Path: e.Name, Mode: modeString(e.Mode), Hash: e.Hash.String()})
	}
	return entries, nil
}

func (n *native) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsZeroHash(hash) {
		return nil, fmt.Errorf("blob hash not specified")
	}
	h, err := n.resolveHash(hash)
	if err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(n.repo.Storer, h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// resolveHash expands abbreviated hashes the way "git cat-file" does.
func (n *native) resolveHash(hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	h, err := n.repo.ResolveRevision(plumbing.Revision(hash))
	if err == nil {
		return *h, nil
	}
	iter, iterErr := blobObjects(n.repo)
	if iterErr != nil {
		return plumbing.ZeroHash, iterErr
	}
	defer iter.Close()
	var found []plumbing.Hash
	prefix := strings.ToLower(hash)
	if err := iter.ForEach(func(b *object.Blob) error {
		if strings.HasPrefix(b.Hash.String(), prefix) {
			found = append(found, b.Hash)
		}
		return nil
	}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("scan blobs for %s: %w", hash, err)
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return plumbing.ZeroHash, fmt.Errorf("read blob %s: %w", hash, plumbing.ErrObjectNotFound)
	default:
		return plumbing.ZeroHash, fmt.Errorf("read blob %s: ambiguous short hash", hash)
	}
}

func (n *native) ReadWorktreeFile(_ context.Context, path string) ([]byte, error) {
	return readWorktreeFile(n.root, path)
}

func (n *native) worktreeMode(path string) (filemode.FileMode, bool) {
	info, err := os.Lstat(filepath.Join(n.root, filepath.FromSlash(path)))
	if err != nil {
		return 0, false
	}
	mode, err := filemode.NewFromOSFileMode(info.Mode())
	if err != nil {
		return 0, false
	}
	return mode, true
}

// side is one end of a native diff.
type side struct {
	hash plumbing.Hash
	mode filemode.FileMode
	data []byte
}

func (n *native) DiffText(ctx context.Context, path string, staged bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path not specified")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return "", fmt.Errorf("read index: %w", err)
	}
	indexSide, err := n.indexSide(ctx, idx, path)
	if err != nil {
		return "", err
	}
	var from, to *side
	if staged {
		head, err := n.headTree()
		if err != nil {
			return "", err
		}
		from, err = n.treeSide(ctx, head, path)
		if err != nil {
			return "", err
		}
		to = indexSide
	} else {
		if indexSide == nil {
			return "", nil
		}
		from = indexSide
		to, err = n.worktreeSide(path)
		if err != nil {
			return "", err
		}
	}
	return renderFileDiff(path, from, to)
}

func (n *native) treeSide(ctx context.Context, tree *object.Tree, path string) (*side, error) {
	f, err := fileFromTree(tree, path)
	if err != nil || f == nil {
		return nil, err
	}
	data, err := n.ReadBlob(ctx, f.Hash.String())
	if err != nil {
		return nil, err
	}
	return &side{hash: f.Hash, mode: f.Mode, data: data}, nil
}

func (n *native) indexSide(ctx context.Context, idx *gitindex.Index, path string) (*side, error) {
	e, err := entryFromIndex(idx, path)
	if err != nil || e == nil {
		return nil, err
	}
	data, err := n.ReadBlob(ctx, e.Hash.String())
	if err != nil {
		return nil, err
	}
	return &side{hash: e.Hash, mode: e.Mode, data: data}, nil
}

func (n *native) worktreeSide(path string) (*side, error) {
	data, err := readWorktreeFile(n.root, path)
	if err != nil || data == nil {
		return nil, err
	}
	mode, ok := n.worktreeMode(path)
	if !ok {
		mode = filemode.Regular
	}
	return &side{hash: plumbing.ComputeHash(plumbing.BlobObject, data), mode: mode, data: data}, nil
}

// renderFileDiff writes a git style diff block for one path.
func renderFileDiff(path string, from, to *side) (string, error) {
	if from == nil && to == nil {
		return "", nil
	}
	if from != nil && to != nil && from.hash == to.hash && from.mode == to.mode {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
	fromName, toName := "a/"+path, "b/"+path
	fromHash, toHash := strings.Repeat("0", abbrevLen), strings.Repeat("0", abbrevLen)
	switch {
	case from == nil:
		fmt.Fprintf(&b, "new file mode %s\n", modeString(to.mode))
		fromName = "/dev/null"
	case to == nil:
		fmt.Fprintf(&b, "deleted file mode %s\n", modeString(from.mode))
		toName = "/dev/null"
	case from.mode != to.mode:
		fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", modeString(from.mode), modeString(to.mode))
	}
	if from != nil {
		fromHash = from.hash.String()[:abbrevLen]
	}
	if to != nil {
		toHash = to.hash.String()[:abbrevLen]
	}
	if from != nil && to != nil && from.hash == to.hash {
		// mode-only change
		return b.String(), nil
	}
	if from != nil && to != nil && from.mode == to.mode {
		fmt.Fprintf(&b, "index %s..%s %s\n", fromHash, toHash, modeString(to.mode))
	} else {
		fmt.Fprintf(&b, "index %s..%s\n", fromHash, toHash)
	}

	fromData, toData := sideData(from), sideData(to)
	bin, err := isBinary(fromData, toData)
	if err != nil {
		return "", err
	}
	if bin {
		fmt.Fprintf(&b, "Binary files %s and %s differ\n", fromName, toName)
		return b.String(), nil
	}
	ud := difflib.UnifiedDiff{
		A:        splitLines(fromData),
		B:        splitLines(toData),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	body, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func sideData(s *side) []byte {
	if s == nil {
		return nil
	}
	return s.data
}

const noNewlineMarker = "\\ No newline at end of file\n"

// splitLines splits data into newline terminated lines. A last line without
// a newline carries git's "\ No newline at end of file" marker so it never
// compares equal to the same text with a newline.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n" + noNewlineMarker
	return lines
}

func isBinary(chunks ...[]byte) (bool, error) {
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		bin, err := binary.IsBinary(bytes.NewReader(c))
		if err != nil || bin {
			return bin, err
		}
	}
	return false, nil
}

func fileFromTree(tree *object.Tree, path string) (*object.File, error) {
	if tree == nil {
		return nil, nil
	}
	f, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func entryFromIndex(idx *gitindex.Index, path string) (*gitindex.Entry, error) {
	if idx == nil {
		return nil, nil
	}
	e, err := idx.Entry(path)
	if errors.Is(err, gitindex.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// normalizeStatus folds go-git's rename/copy codes into plain add/delete/modify
// letters based on which sides actually exist.
func normalizeStatus(ch Change) byte {
	switch {
	case IsZeroHash(ch.SrcHash) && IsZeroHash(ch.DstHash):
		return ch.Status
	case IsZeroHash(ch.SrcHash):
		return 'A'
	case IsZeroHash(ch.DstHash):
		return 'D'
	case ch.Status == 'R' || ch.Status == 'C' || ch.Status == 'A' || ch.Status == 'D':
		return 'M'
	default:
		return ch.Status
	}
}

// modeString renders a mode the way raw diff output does (six octal digits).
func modeString(m filemode.FileMode) string {
	return fmt.Sprintf("%06o", uint32(m))
}

func sortedPaths(status gitlib.Status) []string {
	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
