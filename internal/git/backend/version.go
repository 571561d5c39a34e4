package backend

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Minimum supported git version for the CLI backend. diff-index/diff-files
// with -z and --no-renames, plus "ls-files --exclude-standard", are all older
// than this; 2.23 is the oldest release we test against.
var minGitVersion = gitVersion{major: 2, minor: 23, patch: 0}

type gitVersion struct {
	major int
	minor int
	patch int
}

func MinGitVersion() string {
	return minGitVersion.String()
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

func (v gitVersion) less(other gitVersion) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	if v.minor != other.minor {
		return v.minor < other.minor
	}
	return v.patch < other.patch
}

// parseGitVersionOutput accepts the usual "git --version" shapes:
//
//	git version 2.44.0
//	git version 2.39.3 (Apple Git-146)
//	git version 2.39.3.windows.1
func parseGitVersionOutput(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	if _, rest, ok := strings.Cut(s, "git version"); ok {
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return gitVersion{}, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	if len(parts) < 2 {
		return gitVersion{}, false
	}
	var nums [3]int
	for i := 0; i < len(parts) && i < len(nums); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			if i < 2 {
				return gitVersion{}, false
			}
			break
		}
		nums[i] = n
	}
	return gitVersion{major: nums[0], minor: nums[1], patch: nums[2]}, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.less(minGitVersion) {
		return fmt.Errorf("git %s is too old; gitstat requires git >= %s", got, minGitVersion)
	}
	return nil
}

type versionCheck struct {
	out string
	err error
}

var (
	versionMu     sync.Mutex
	versionChecks = map[string]versionCheck{}
)

// runGitVersion runs "<bin> --version" once per binary.
func runGitVersion(bin string) versionCheck {
	versionMu.Lock()
	defer versionMu.Unlock()
	if res, ok := versionChecks[bin]; ok {
		return res
	}
	outBytes, err := exec.Command(bin, "--version").CombinedOutput()
	out := strings.TrimSpace(string(outBytes))
	res := versionCheck{out: out}
	switch {
	case err != nil && out != "":
		res.err = fmt.Errorf("%s --version: %v: %s", bin, err, out)
	case err != nil:
		res.err = fmt.Errorf("%s --version: %w", bin, err)
	default:
		res.err = validateGitVersionOutput(out)
	}
	versionChecks[bin] = res
	return res
}

// GitVersion returns the raw "git --version" output of bin.
func GitVersion(bin string) (string, error) {
	if bin == "" {
		bin = defaultGitBinary
	}
	res := runGitVersion(bin)
	return res.out, res.err
}

func ensureMinGitVersion(bin string) error {
	return runGitVersion(bin).err
}
