package backend

import "strings"

// ZeroHash is what git prints for "no content on this side" in raw diff
// output (new file, deleted file or content not yet hashed).
const ZeroHash = "0000000000000000000000000000000000000000"

// EmptyTreeHash is the well-known id of the empty tree, used as the diff base
// while HEAD is unborn.
const EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Change is one entry of a raw diff listing (diff-index / diff-files).
type Change struct {
	Path    string
	Status  byte // raw status letter: A, D, M, T, U, ...
	SrcMode string
	DstMode string
	SrcHash string
	DstHash string
}

// IndexEntry is one path recorded in the index.
type IndexEntry struct {
	Path string
	Mode string
	Hash string
}

// IsZeroHash reports whether hash is empty or made only of zeros.
func IsZeroHash(hash string) bool {
	return strings.Trim(hash, "0") == ""
}
