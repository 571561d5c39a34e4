package git

import (
	"context"
	"fmt"
	"slices"
	"sort"

	gitbackend "github.com/thiagokokada/gitstat/internal/git/backend"
)

// Kind classifies a path's change for one comparison pair.
type Kind uint8

const (
	KindUnchanged Kind = iota
	KindUntracked
	KindAdded
	KindModified
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindUntracked:
		return "untracked"
	case KindAdded:
		return "added"
	case KindModified:
		return "modified"
	case KindDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// kindFromStatus maps a raw diff status letter.
func kindFromStatus(status byte) Kind {
	switch status {
	case 'A':
		return KindAdded
	case 'D':
		return KindDeleted
	case 'M', 'T', 'U':
		return KindModified
	default:
		return KindUnchanged
	}
}

// Record is one path's change state relative to one comparison: index vs
// HEAD when Staged, working tree vs index otherwise.
type Record struct {
	Path   string
	Kind   Kind
	Staged bool

	// IndexHash and RepoHash identify the content at the index and HEAD
	// stages as seen by this comparison. Empty means no content.
	IndexHash string
	RepoHash  string
}

// DefaultStage is the stage Blob resolves without an explicit stage.
func (r Record) DefaultStage() Stage {
	if r.Staged {
		return StageIndex
	}
	return StageFile
}

// Blob resolves the path's content at stage. A nil Blob means the stage holds
// no content for this path.
func (r Record) Blob(ctx context.Context, src Source, stage Stage) (*Blob, error) {
	switch stage {
	case StageFile:
		data, err := src.ReadWorktreeFile(ctx, r.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		if data == nil {
			return nil, nil
		}
		return &Blob{Data: data}, nil
	case StageIndex:
		return newBlobRef(r.IndexHash).Load(ctx, src)
	case StageRepo:
		return newBlobRef(r.RepoHash).Load(ctx, src)
	default:
		return nil, fmt.Errorf("unknown stage %d", stage)
	}
}

// DefaultBlob is Blob at DefaultStage.
func (r Record) DefaultBlob(ctx context.Context, src Source) (*Blob, error) {
	return r.Blob(ctx, src, r.DefaultStage())
}

// Diff asks src for this record's diff text and parses it. Untracked and
// unchanged records have no diff.
func (r Record) Diff(ctx context.Context, src Source) (*Diff, error) {
	if r.Kind == KindUntracked || r.Kind == KindUnchanged {
		return nil, nil
	}
	text, err := src.DiffText(ctx, r.Path, r.Staged)
	if err != nil {
		return nil, err
	}
	diffs, err := ParseDiffs(text)
	if err != nil {
		return nil, err
	}
	for _, d := range diffs {
		if d.BPath == r.Path || d.APath == r.Path {
			return d, nil
		}
	}
	return nil, nil
}

// Lookup is the result of looking a path up in a Status: either a Single
// record or a Pair when the path has both staged and unstaged changes.
type Lookup interface {
	// Records returns the records in listing order, unstaged first.
	Records() []Record
	lookup()
}

// Single is a path with one kind of change.
type Single struct {
	Record
}

func (s Single) Records() []Record { return []Record{s.Record} }
func (Single) lookup()             {}

// Pair is a path with independent staged and unstaged changes.
type Pair struct {
	Unstaged Record
	Staged   Record
}

func (p Pair) Records() []Record { return []Record{p.Unstaged, p.Staged} }
func (Pair) lookup()             {}

// Listings are the raw inputs of Classify.
type Listings struct {
	// Staged lists index changes relative to HEAD.
	Staged []gitbackend.Change
	// Unstaged lists working tree changes relative to the index.
	Unstaged []gitbackend.Change
	// Untracked lists paths absent from the index.
	Untracked []string
	// Tracked optionally lists every index entry; paths not present in any
	// other listing become unchanged records.
	Tracked []gitbackend.IndexEntry
}

// Status is the path keyed result of Classify.
type Status struct {
	entries map[string]Lookup
	paths   []string
}

// Lookup returns the record(s) for path, or false if the path has no entry.
func (s *Status) Lookup(path string) (Lookup, bool) {
	if s == nil {
		return nil, false
	}
	l, ok := s.entries[path]
	return l, ok
}

// Paths returns every path in the table, sorted.
func (s *Status) Paths() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.paths)
}

func (s *Status) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Records flattens the table in path order.
func (s *Status) Records() []Record {
	if s == nil {
		return nil
	}
	records := make([]Record, 0, len(s.paths))
	for _, p := range s.paths {
		records = append(records, s.entries[p].Records()...)
	}
	return records
}

// Classify merges the listings into a Status. A path present in both the
// staged and unstaged listings yields a Pair; every other path yields a
// Single. Untracked paths are assumed absent from the other listings.
func Classify(l Listings) *Status {
	staged := make(map[string]gitbackend.Change, len(l.Staged))
	for _, ch := range l.Staged {
		staged[ch.Path] = ch
	}
	s := &Status{entries: make(map[string]Lookup, len(l.Staged)+len(l.Unstaged)+len(l.Untracked))}

	for _, ch := range l.Unstaged {
		rec := Record{
			Path:      ch.Path,
			Kind:      kindFromStatus(ch.Status),
			IndexHash: normalizeHash(ch.SrcHash),
		}
		if st, ok := staged[ch.Path]; ok {
			rec.RepoHash = normalizeHash(st.SrcHash)
			s.entries[ch.Path] = Pair{Unstaged: rec, Staged: stagedRecord(st)}
			continue
		}
		// index and HEAD agree on a path with only unstaged changes
		rec.RepoHash = rec.IndexHash
		s.entries[ch.Path] = Single{rec}
	}
	for _, ch := range l.Staged {
		if _, ok := s.entries[ch.Path]; ok {
			continue
		}
		s.entries[ch.Path] = Single{stagedRecord(ch)}
	}
	for _, p := range l.Untracked {
		rec := Record{Path: p, Kind: KindUntracked}
		// a staged removal whose file was recreated on disk
		if prev, ok := s.entries[p].(Single); ok && prev.Staged {
			s.entries[p] = Pair{Unstaged: rec, Staged: prev.Record}
			continue
		}
		s.entries[p] = Single{rec}
	}
	for _, e := range l.Tracked {
		if _, ok := s.entries[e.Path]; ok {
			continue
		}
		hash := normalizeHash(e.Hash)
		s.entries[e.Path] = Single{Record{Path: e.Path, Kind: KindUnchanged, IndexHash: hash, RepoHash: hash}}
	}

	s.paths = make([]string, 0, len(s.entries))
	for p := range s.entries {
		s.paths = append(s.paths, p)
	}
	sort.Strings(s.paths)
	return s
}

func stagedRecord(ch gitbackend.Change) Record {
	return Record{
		Path:      ch.Path,
		Kind:      kindFromStatus(ch.Status),
		Staged:    true,
		RepoHash:  normalizeHash(ch.SrcHash),
		IndexHash: normalizeHash(ch.DstHash),
	}
}

// normalizeHash maps git's all-zero "no content" hash to the empty string.
func normalizeHash(hash string) string {
	if gitbackend.IsZeroHash(hash) {
		return ""
	}
	return hash
}
