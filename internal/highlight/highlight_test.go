package highlight

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleDiff = "diff --git a/main.go b/main.go\n" +
	"--- a/main.go\n" +
	"+++ b/main.go\n" +
	"@@ -1 +1 @@\n" +
	"-package foo\n" +
	"+package main\n"

func TestThemePreferenceFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ThemePreference
	}{
		{"dark", ThemeDark},
		{" LIGHT ", ThemeLight},
		{"auto", ThemeAuto},
		{"", ThemeAuto},
		{"sepia", ThemeAuto},
	}
	for _, tt := range tests {
		if got := ThemePreferenceFromString(tt.in); got != tt.want {
			t.Errorf("ThemePreferenceFromString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestColorModeFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ColorMode
	}{
		{"always", ColorAlways},
		{"never", ColorNever},
		{"auto", ColorAuto},
		{"whatever", ColorAuto},
	}
	for _, tt := range tests {
		if got := ColorModeFromString(tt.in); got != tt.want {
			t.Errorf("ColorModeFromString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDiff_Disabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := New(&buf, ColorNever, ThemeLight)
	if h.Enabled() {
		t.Fatal("ColorNever should disable highlighting")
	}
	if err := h.Diff(&buf, sampleDiff); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if buf.String() != sampleDiff {
		t.Fatalf("Diff() = %q, want verbatim", buf.String())
	}
}

func TestDiff_AutoOnBufferIsPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if New(&buf, ColorAuto, ThemeLight).Enabled() {
		t.Fatal("a bytes.Buffer is not a terminal")
	}
}

func TestDiff_Always(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := New(&buf, ColorAlways, ThemeDark)
	if err := h.Diff(&buf, sampleDiff); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes in %q", out)
	}
	if !strings.Contains(out, "package main") {
		t.Fatalf("content lost: %q", out)
	}
}

func TestFile_Always(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := New(&buf, ColorAlways, ThemeLight)
	if err := h.File(&buf, "main.go", []byte("package main\n")); err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes in %q", buf.String())
	}
}

func TestIsDark(t *testing.T) {
	orig := detectDarkMode
	t.Cleanup(func() { detectDarkMode = orig })

	if !isDark(ThemeDark) || isDark(ThemeLight) {
		t.Fatal("explicit preferences should not consult detection")
	}

	detectDarkMode = func() (bool, error) { return true, nil }
	if !isDark(ThemeAuto) {
		t.Fatal("auto should follow detection")
	}
	detectDarkMode = func() (bool, error) { return true, errors.New("no desktop") }
	if isDark(ThemeAuto) {
		t.Fatal("detection errors should fall back to light")
	}
}

func TestStyleFor(t *testing.T) {
	t.Parallel()

	if got := styleFor(false).Name; got != "github" {
		t.Fatalf("light style = %q", got)
	}
	if got := styleFor(true).Name; got != "github-dark" {
		t.Fatalf("dark style = %q", got)
	}
}
