package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

func testSide(data string, mode filemode.FileMode) *side {
	return &side{
		hash: plumbing.ComputeHash(plumbing.BlobObject, []byte(data)),
		mode: mode,
		data: []byte(data),
	}
}

func TestRenderFileDiff(t *testing.T) {
	t.Parallel()

	a := testSide("one\ntwo\n", filemode.Regular)
	b := testSide("one\nTWO\nthree\n", filemode.Regular)
	short := func(s *side) string { return s.hash.String()[:abbrevLen] }

	tests := []struct {
		name     string
		from, to *side
		contains []string
		absent   []string
	}{
		{
			name: "modified",
			from: a,
			to:   b,
			contains: []string{
				"diff --git a/f.txt b/f.txt\n",
				"index " + short(a) + ".." + short(b) + " 100644\n",
				"--- a/f.txt\n+++ b/f.txt\n",
				"-two\n+TWO\n+three\n",
			},
		},
		{
			name: "new_file",
			to:   b,
			contains: []string{
				"new file mode 100644\n",
				"index 0000000.." + short(b) + "\n",
				"--- /dev/null\n+++ b/f.txt\n",
			},
		},
		{
			name: "deleted_file",
			from: a,
			contains: []string{
				"deleted file mode 100644\n",
				"index " + short(a) + "..0000000\n",
				"--- a/f.txt\n+++ /dev/null\n",
			},
		},
		{
			name: "mode_only",
			from: a,
			to:   testSide("one\ntwo\n", filemode.Executable),
			contains: []string{
				"old mode 100644\nnew mode 100755\n",
			},
			absent: []string{"index ", "@@"},
		},
		{
			name: "binary",
			from: testSide("a\x00b", filemode.Regular),
			to:   testSide("a\x00c", filemode.Regular),
			contains: []string{
				"Binary files a/f.txt and b/f.txt differ\n",
			},
			absent: []string{"@@"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := renderFileDiff("f.txt", tt.from, tt.to)
			if err != nil {
				t.Fatalf("renderFileDiff() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Fatalf("renderFileDiff() missing %q in:\n%s", want, got)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Fatalf("renderFileDiff() should not contain %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestRenderFileDiff_NoChange(t *testing.T) {
	t.Parallel()

	a := testSide("same\n", filemode.Regular)
	for _, pair := range [][2]*side{{nil, nil}, {a, a}} {
		got, err := renderFileDiff("f", pair[0], pair[1])
		if err != nil {
			t.Fatalf("renderFileDiff() error = %v", err)
		}
		if got != "" {
			t.Fatalf("renderFileDiff() = %q, want empty", got)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	const h = "78981922613b2afb6025042ff6bd878ac1994e85"
	tests := []struct {
		name string
		ch   Change
		want byte
	}{
		{name: "added", ch: Change{Status: 'M', SrcHash: ZeroHash, DstHash: h}, want: 'A'},
		{name: "deleted", ch: Change{Status: 'M', SrcHash: h, DstHash: ZeroHash}, want: 'D'},
		{name: "rename_both_sides", ch: Change{Status: 'R', SrcHash: h, DstHash: h}, want: 'M'},
		{name: "copy_both_sides", ch: Change{Status: 'C', SrcHash: h, DstHash: h}, want: 'M'},
		{name: "modified", ch: Change{Status: 'M', SrcHash: h, DstHash: h}, want: 'M'},
		{name: "unknown_hashes", ch: Change{Status: 'U'}, want: 'U'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := normalizeStatus(tt.ch); got != tt.want {
				t.Fatalf("normalizeStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	t.Parallel()

	tests := map[filemode.FileMode]string{
		filemode.Regular:    "100644",
		filemode.Executable: "100755",
		filemode.Symlink:    "120000",
		filemode.Empty:      "000000",
	}
	for mode, want := range tests {
		if got := modeString(mode); got != want {
			t.Fatalf("modeString(%v) = %q, want %q", mode, got, want)
		}
	}
}

func TestRenderFileDiff_Exact(t *testing.T) {
	t.Parallel()

	short := func(s *side) string { return s.hash.String()[:abbrevLen] }
	added := testSide("foo\nbar\nbaz\n", filemode.Regular)
	noEOF := testSide("foo\nbar", filemode.Regular)
	removed := testSide("gone soon\n", filemode.Regular)
	keptFrom := testSide("a\nb", filemode.Regular)
	keptTo := testSide("A\nb", filemode.Regular)

	tests := []struct {
		name     string
		from, to *side
		want     string
	}{
		{
			name: "new_file",
			to:   added,
			want: "diff --git a/f.txt b/f.txt\n" +
				"new file mode 100644\n" +
				"index 0000000.." + short(added) + "\n" +
				"--- /dev/null\n+++ b/f.txt\n" +
				"@@ -0,0 +1,3 @@\n+foo\n+bar\n+baz\n",
		},
		{
			name: "deleted_file",
			from: removed,
			want: "diff --git a/f.txt b/f.txt\n" +
				"deleted file mode 100644\n" +
				"index " + short(removed) + "..0000000\n" +
				"--- a/f.txt\n+++ /dev/null\n" +
				"@@ -1 +0,0 @@\n-gone soon\n",
		},
		{
			name: "missing_newline_gained",
			from: noEOF,
			to:   added,
			want: "diff --git a/f.txt b/f.txt\n" +
				"index " + short(noEOF) + ".." + short(added) + " 100644\n" +
				"--- a/f.txt\n+++ b/f.txt\n" +
				"@@ -1,2 +1,3 @@\n foo\n-bar\n\\ No newline at end of file\n+bar\n+baz\n",
		},
		{
			name: "missing_newline_kept",
			from: keptFrom,
			to:   keptTo,
			want: "diff --git a/f.txt b/f.txt\n" +
				"index " + short(keptFrom) + ".." + short(keptTo) + " 100644\n" +
				"--- a/f.txt\n+++ b/f.txt\n" +
				"@@ -1,2 +1,2 @@\n-a\n+A\n b\n\\ No newline at end of file\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := renderFileDiff("f.txt", tt.from, tt.to)
			if err != nil {
				t.Fatalf("renderFileDiff() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("renderFileDiff() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "a\n", want: []string{"a\n"}},
		{in: "a\nb\n", want: []string{"a\n", "b\n"}},
		{in: "a\nb", want: []string{"a\n", "b\n" + noNewlineMarker}},
		{in: "\n\n", want: []string{"\n", "\n"}},
	}
	for _, tt := range tests {
		if got := splitLines([]byte(tt.in)); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNativeSnapshot_SharedPerQuery(t *testing.T) {
	dir := t.TempDir()
	if _, err := gitlib.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := OpenNative(dir)
	if err != nil {
		t.Fatalf("OpenNative: %v", err)
	}

	calls := 0
	orig := worktreeStatus
	worktreeStatus = func(wt *gitlib.Worktree) (gitlib.Status, error) {
		calls++
		return orig(wt)
	}
	t.Cleanup(func() { worktreeStatus = orig })

	list := func(ctx context.Context) {
		t.Helper()
		if _, err := b.StagedChanges(ctx); err != nil {
			t.Fatalf("StagedChanges: %v", err)
		}
		if _, err := b.UnstagedChanges(ctx); err != nil {
			t.Fatalf("UnstagedChanges: %v", err)
		}
		paths, err := b.UntrackedPaths(ctx)
		if err != nil {
			t.Fatalf("UntrackedPaths: %v", err)
		}
		if !reflect.DeepEqual(paths, []string{"new.txt"}) {
			t.Fatalf("UntrackedPaths() = %v", paths)
		}
	}

	list(WithQuery(context.Background()))
	if calls != 1 {
		t.Fatalf("status walks within one query = %d, want 1", calls)
	}

	calls = 0
	list(context.Background())
	if calls != 3 {
		t.Fatalf("status walks without a query = %d, want 3", calls)
	}
}

var errObjectRead = errors.New("object read failed")

// failingObjectIter fails like a corrupt pack would mid-scan.
type failingObjectIter struct{}

func (failingObjectIter) Next() (plumbing.EncodedObject, error) { return nil, errObjectRead }

func (failingObjectIter) ForEach(func(plumbing.EncodedObject) error) error { return errObjectRead }

func (failingObjectIter) Close() {}

var _ storer.EncodedObjectIter = failingObjectIter{}

func TestReadBlob_ShortHash(t *testing.T) {
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if _, err := w.Write([]byte("short\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("SetEncodedObject: %v", err)
	}
	b, err := OpenNative(dir)
	if err != nil {
		t.Fatalf("OpenNative: %v", err)
	}
	short := hash.String()[:abbrevLen]

	data, err := b.ReadBlob(context.Background(), short)
	if err != nil {
		t.Fatalf("ReadBlob(%s): %v", short, err)
	}
	if string(data) != "short\n" {
		t.Fatalf("ReadBlob(%s) = %q", short, data)
	}

	orig := blobObjects
	blobObjects = func(r *gitlib.Repository) (*object.BlobIter, error) {
		return object.NewBlobIter(r.Storer, failingObjectIter{}), nil
	}
	t.Cleanup(func() { blobObjects = orig })

	if _, err := b.ReadBlob(context.Background(), short); !errors.Is(err, errObjectRead) {
		t.Fatalf("ReadBlob(%s) error = %v, want %v", short, err, errObjectRead)
	}
}
