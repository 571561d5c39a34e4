package backend

import (
	"strings"
	"testing"
)

func TestParseGitVersionOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want gitVersion
		ok   bool
	}{
		{name: "empty", in: "", ok: false},
		{name: "plain", in: "git version 2.44.0\n", want: gitVersion{major: 2, minor: 44}, ok: true},
		{name: "apple_git", in: "git version 2.39.3 (Apple Git-146)\n", want: gitVersion{major: 2, minor: 39, patch: 3}, ok: true},
		{name: "windows_suffix", in: "git version 2.39.3.windows.1\n", want: gitVersion{major: 2, minor: 39, patch: 3}, ok: true},
		{name: "rc_suffix", in: "git version 2.45.0.rc1\n", want: gitVersion{major: 2, minor: 45}, ok: true},
		{name: "no_prefix", in: "2.42.1\n", want: gitVersion{major: 2, minor: 42, patch: 1}, ok: true},
		{name: "no_patch", in: "git version 2.42\n", want: gitVersion{major: 2, minor: 42}, ok: true},
		{name: "major_only", in: "git version 2\n", ok: false},
		{name: "invalid", in: "git version not-a-version\n", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := parseGitVersionOutput(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got=%+v)", ok, tt.ok, got)
			}
			if ok && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateGitVersionOutput(t *testing.T) {
	if err := validateGitVersionOutput("git version " + MinGitVersion() + "\n"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := validateGitVersionOutput("git version 2.22.9\n"); err == nil {
		t.Fatal("expected error for old git")
	}
	err := validateGitVersionOutput("garbage")
	if err == nil || !strings.Contains(err.Error(), "unable to parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestGitVersion_MissingBinary(t *testing.T) {
	t.Parallel()

	_, err := GitVersion("gitstat-no-such-git-binary")
	if err == nil {
		t.Fatal("expected error")
	}
	// cached result is returned on the second call
	_, err2 := GitVersion("gitstat-no-such-git-binary")
	if err2 == nil || err2.Error() != err.Error() {
		t.Fatalf("expected cached error %v, got %v", err, err2)
	}
}
