package git

import (
	"strconv"
	"strings"
)

// ParseDiffs splits "git diff" output into one Diff per "diff --git" block.
func ParseDiffs(text string) ([]*Diff, error) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var diffs []*Diff
	for i := 0; i < len(lines); {
		if !strings.HasPrefix(lines[i], "diff --git ") {
			i++
			continue
		}
		end := i + 1
		for end < len(lines) && !strings.HasPrefix(lines[end], "diff --git ") {
			end++
		}
		d, err := parseDiffBlock(lines[i:end])
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
		i = end
	}
	return diffs, nil
}

func parseDiffBlock(lines []string) (*Diff, error) {
	var h DiffHeader
	h.APath, h.BPath = parseGitDiffPaths(lines[0])
	var indexLine string
	body := len(lines)
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if isBodyStart(line) {
			body = i
			break
		}
		key, value := headerField(line)
		switch key {
		case "old mode":
			h.AMode = value
		case "new mode":
			h.BMode = value
		case "deleted file mode":
			h.AMode = value
			h.DeletedFile = true
		case "new file mode":
			h.BMode = value
			h.NewFile = true
		case "rename from", "copy from":
			h.APath = unquotePath(value)
		case "rename to", "copy to":
			h.BPath = unquotePath(value)
		case "index":
			indexLine = line
		}
	}
	var patch string
	if body < len(lines) {
		patch = strings.Join(lines[body:], "\n") + "\n"
		refinePaths(&h, lines[body:])
	}
	return NewDiff(h, indexLine, patch)
}

func isBodyStart(line string) bool {
	return strings.HasPrefix(line, "--- ") ||
		strings.HasPrefix(line, "Binary files ") ||
		strings.HasPrefix(line, "GIT binary patch")
}

var headerKeys = []string{
	"deleted file mode",
	"new file mode",
	"old mode",
	"new mode",
	"rename from",
	"rename to",
	"copy from",
	"copy to",
	"similarity index",
	"dissimilarity index",
	"index",
}

func headerField(line string) (key, value string) {
	for _, k := range headerKeys {
		if line == k {
			return k, ""
		}
		if rest, ok := strings.CutPrefix(line, k+" "); ok {
			return k, strings.TrimSpace(rest)
		}
	}
	return "", ""
}

// refinePaths takes the paths from the "---"/"+++" lines, which are
// unambiguous even when the "diff --git" line is not.
func refinePaths(h *DiffHeader, body []string) {
	if len(body) < 2 {
		return
	}
	if p, ok := patchHeaderPath(body[0], "--- ", "a/"); ok {
		h.APath = p
	}
	if p, ok := patchHeaderPath(body[1], "+++ ", "b/"); ok {
		h.BPath = p
	}
}

func patchHeaderPath(line, marker, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, marker)
	if !ok {
		return "", false
	}
	// git appends a tab when the name contains a space
	rest = strings.TrimRight(rest, "\t\r")
	if rest == "/dev/null" {
		return "", false
	}
	p := unquotePath(rest)
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return strings.TrimPrefix(p, prefix), true
}

// parseGitDiffPaths extracts both paths from a "diff --git a/x b/y" line.
func parseGitDiffPaths(line string) (aPath, bPath string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "diff --git "))
	// unquoted names with spaces: "a/p q b/p q" splits evenly
	if !strings.HasPrefix(rest, `"`) && len(rest)%2 == 1 {
		half := len(rest) / 2
		if rest[half] == ' ' && strings.HasPrefix(rest, "a/") && strings.HasPrefix(rest[half+1:], "b/") &&
			rest[2:half] == rest[half+3:] {
			return rest[2:half], rest[half+3:]
		}
	}
	tokens := diffLineTokens(rest)
	if len(tokens) < 2 {
		return "", ""
	}
	return normalizeDiffPath(tokens[0], "a/"), normalizeDiffPath(tokens[len(tokens)-1], "b/")
}

func diffLineTokens(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '"' {
			end := closingQuote(s)
			tokens = append(tokens, unquotePath(s[:end]))
			s = s[end:]
			continue
		}
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			j = len(s)
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
	return tokens
}

// closingQuote returns the index just past the quote that closes s[0].
func closingQuote(s string) int {
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return i + 1
		}
	}
	return len(s)
}

// unquotePath undoes git's C-style quoting ("a\303\251.txt", "quo\"te").
func unquotePath(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s[1 : len(s)-1]
}

func normalizeDiffPath(token, prefix string) string {
	return strings.TrimPrefix(token, prefix)
}
