package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedIndexLine is returned when a diff block carries an "index" line
// that does not have the "index <hash>..<hash> [mode]" shape.
var ErrMalformedIndexLine = errors.New("malformed diff index line")

var indexLineRe = regexp.MustCompile(`^index ([0-9A-Fa-f]+)\.\.([0-9A-Fa-f]+) ?(.+)?$`)

// DiffHeader holds the per-file fields of a multi-file diff stream that come
// before the "index" line.
type DiffHeader struct {
	APath       string
	BPath       string
	AMode       string
	BMode       string
	NewFile     bool
	DeletedFile bool
}

// Diff is one file's block of a unified diff.
type Diff struct {
	APath string
	BPath string
	// ASha and BSha are the (possibly abbreviated) content hashes of each
	// side. Empty means the side has no content.
	ASha  string
	BSha  string
	AMode string
	BMode string

	NewFile     bool
	DeletedFile bool

	// Patch is the raw body starting at the "---" line. Empty means the
	// block had no textual diff (e.g. a mode-only change).
	Patch string

	ABlob *BlobRef
	BBlob *BlobRef
}

// NewDiff builds a Diff from header fields, the raw index line and the body.
// An empty indexLine leaves both hashes absent; an index line that does not
// parse is reported as ErrMalformedIndexLine.
func NewDiff(h DiffHeader, indexLine, body string) (*Diff, error) {
	d := &Diff{
		APath:       h.APath,
		BPath:       h.BPath,
		AMode:       h.AMode,
		BMode:       h.BMode,
		NewFile:     h.NewFile,
		DeletedFile: h.DeletedFile,
		Patch:       body,
	}
	if indexLine != "" {
		aSha, bSha, mode, ok := parseIndexLine(indexLine)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", diffName(h), ErrMalformedIndexLine, indexLine)
		}
		d.ASha, d.BSha = normalizeHash(aSha), normalizeHash(bSha)
		if mode != "" {
			d.BMode = mode
			if d.AMode == "" {
				d.AMode = mode
			}
		}
	}
	d.ABlob = newBlobRef(d.ASha)
	d.BBlob = newBlobRef(d.BSha)
	return d, nil
}

func parseIndexLine(line string) (aSha, bSha, mode string, ok bool) {
	m := indexLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], strings.TrimSpace(m[3]), true
}

func diffName(h DiffHeader) string {
	if h.BPath != "" {
		return h.BPath
	}
	return h.APath
}

// HasPatch reports whether the block carried a textual diff.
func (d *Diff) HasPatch() bool {
	return d != nil && d.Patch != ""
}

// Insertions counts added lines, not including the "+++" header.
func (d *Diff) Insertions() int {
	return d.countLines('+')
}

// Deletions counts removed lines, not including the "---" header.
func (d *Diff) Deletions() int {
	return d.countLines('-')
}

func (d *Diff) countLines(prefix byte) int {
	if !d.HasPatch() {
		return 0
	}
	n := 0
	inHunk := false
	for line := range strings.SplitSeq(d.Patch, "\n") {
		if !inHunk {
			// the "---"/"+++" headers come before the first hunk
			inHunk = strings.HasPrefix(line, "@@")
			continue
		}
		if len(line) > 0 && line[0] == prefix {
			n++
		}
	}
	return n
}

// Path is the path a reader would name the diff by.
func (d *Diff) Path() string {
	if d.BPath != "" {
		return d.BPath
	}
	return d.APath
}
