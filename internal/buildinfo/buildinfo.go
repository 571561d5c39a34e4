package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var readBuildInfo = debug.ReadBuildInfo

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		return "dev"
	}
	return version
}

func setting(key string) string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// Tags returns the build tags recorded at compile time.
func Tags() string {
	return setting("-tags")
}

// Revision returns the short VCS revision, suffixed with "-dirty" for builds
// from a modified tree.
func Revision() string {
	rev := setting("vcs.revision")
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && setting("vcs.modified") == "true" {
		rev += "-dirty"
	}
	return rev
}

// String is the one line "gitstat version" output.
func String() string {
	var extras []string
	if rev := Revision(); rev != "" {
		extras = append(extras, "rev: "+rev)
	}
	if tags := Tags(); tags != "" {
		extras = append(extras, "tags: "+tags)
	}
	if len(extras) == 0 {
		return Version()
	}
	return fmt.Sprintf("%s (%s)", Version(), strings.Join(extras, ", "))
}
