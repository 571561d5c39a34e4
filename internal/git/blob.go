package git

import (
	"context"
	"fmt"
	"strings"
)

// Stage names one of the three places a path's content can live.
type Stage uint8

const (
	// StageFile is the raw working tree file. It is read from disk and has no
	// object id.
	StageFile Stage = iota
	// StageIndex is the staged content.
	StageIndex
	// StageRepo is the content in the HEAD commit.
	StageRepo
)

func (s Stage) String() string {
	switch s {
	case StageIndex:
		return "index"
	case StageRepo:
		return "repo"
	default:
		return "file"
	}
}

// ParseStage accepts "file", "index" or "repo" (case insensitive, with an
// optional leading colon).
func ParseStage(raw string) (Stage, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ":")) {
	case "file", "worktree":
		return StageFile, nil
	case "index", "staged":
		return StageIndex, nil
	case "repo", "head":
		return StageRepo, nil
	default:
		return StageFile, fmt.Errorf("unknown stage %q (want file, index or repo)", raw)
	}
}

// Blob is resolved content. Hash is empty for working tree content.
type Blob struct {
	Hash string
	Data []byte
}

func (b *Blob) String() string {
	if b == nil {
		return ""
	}
	return string(b.Data)
}

// Fetcher reads object content by hash.
type Fetcher interface {
	ReadBlob(ctx context.Context, hash string) ([]byte, error)
}

// Source is everything a Record needs to resolve its content and diff. It is
// passed explicitly to every call; backend.Backend implements it.
type Source interface {
	Fetcher
	ReadWorktreeFile(ctx context.Context, path string) ([]byte, error)
	DiffText(ctx context.Context, path string, staged bool) (string, error)
}

// BlobRef is a content-identified handle whose data is fetched on Load.
type BlobRef struct {
	Hash string
}

func newBlobRef(hash string) *BlobRef {
	if hash == "" {
		return nil
	}
	return &BlobRef{Hash: hash}
}

// Load fetches the referenced content. A nil ref loads as a nil Blob.
func (r *BlobRef) Load(ctx context.Context, f Fetcher) (*Blob, error) {
	if r == nil {
		return nil, nil
	}
	data, err := f.ReadBlob(ctx, r.Hash)
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", r.Hash, err)
	}
	return &Blob{Hash: r.Hash, Data: data}, nil
}
