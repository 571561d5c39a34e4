// Package highlight colors diff and file content for the terminal.
package highlight

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

func ColorModeFromString(raw string) ColorMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ColorAlways.String():
		return ColorAlways
	case ColorNever.String():
		return ColorNever
	default:
		return ColorAuto
	}
}

var (
	detectDarkMode = darkmode.IsDarkMode
	isTerminal     = func(fd uintptr) bool {
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

// Highlighter writes text with terminal colors, or verbatim when disabled.
type Highlighter struct {
	enabled bool
	style   *chroma.Style
}

// New resolves the color mode against out and the theme against the desktop
// setting.
func New(out io.Writer, mode ColorMode, theme ThemePreference) *Highlighter {
	h := &Highlighter{enabled: colorEnabled(out, mode)}
	if h.enabled {
		h.style = styleFor(isDark(theme))
	}
	return h
}

func (h *Highlighter) Enabled() bool {
	return h != nil && h.enabled
}

// Diff writes unified diff text.
func (h *Highlighter) Diff(w io.Writer, text string) error {
	return h.write(w, lexers.Get("diff"), text)
}

// File writes content using the lexer matching path.
func (h *Highlighter) File(w io.Writer, path string, data []byte) error {
	return h.write(w, lexerForPath(path, data), string(data))
}

func (h *Highlighter) write(w io.Writer, lexer chroma.Lexer, text string) error {
	if !h.Enabled() || lexer == nil {
		_, err := io.WriteString(w, text)
		return err
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return formatter.Format(w, h.style, iterator)
}

func colorEnabled(out io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(interface{ Fd() uintptr })
	return ok && isTerminal(f.Fd())
}

func isDark(pref ThemePreference) bool {
	switch pref {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	}
	if detectDarkMode == nil {
		return false
	}
	dark, err := detectDarkMode()
	if err != nil {
		slog.Debug("detect dark-mode", slog.Any("error", err))
		return false
	}
	return dark
}

func styleFor(dark bool) *chroma.Style {
	name := "github"
	if dark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}

func lexerForPath(path string, data []byte) chroma.Lexer {
	lexer := lexers.Match(path)
	if lexer == nil && len(data) > 0 {
		lexer = lexers.Analyse(string(data))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return lexer
}
