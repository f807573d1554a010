// Package termstyle renders ANSI-styled text. A Palette is built once at
// startup and handed to every component that draws; styling is never
// ambient package state.
package termstyle

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette wraps text in ANSI styles when enabled. The zero value renders
// plain text.
type Palette struct {
	enabled bool
}

// Detect builds a Palette from the environment: styling turns on when
// stdout is a TTY, the terminal advertises color support, and NO_COLOR is
// unset.
func Detect() Palette {
	if os.Getenv("NO_COLOR") != "" {
		return Palette{}
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return Palette{}
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return Palette{}
	}
	return Palette{enabled: true}
}

// FromMode maps a configured color mode ("auto", "always", "never") to a
// Palette. Unknown modes auto-detect.
func FromMode(mode string) Palette {
	switch mode {
	case "always":
		return Forced(true)
	case "never":
		return Forced(false)
	default:
		return Detect()
	}
}

// Forced returns a Palette with styling unconditionally on or off.
func Forced(on bool) Palette {
	return Palette{enabled: on}
}

// Enabled reports whether this palette emits styles.
func (p Palette) Enabled() bool {
	return p.enabled
}

func (p Palette) wrap(code, s string) string {
	if !p.enabled || s == "" {
		return s
	}
	return code + s + "\033[0m"
}

// Bold renders text in bold.
func (p Palette) Bold(s string) string { return p.wrap("\033[1m", s) }

// Dim renders text in dim/faint.
func (p Palette) Dim(s string) string { return p.wrap("\033[2m", s) }

// Inverse renders text in inverse video, used for the cursor bar.
func (p Palette) Inverse(s string) string { return p.wrap("\033[7m", s) }

// Red renders text in red.
func (p Palette) Red(s string) string { return p.wrap("\033[31m", s) }

// Green renders text in green.
func (p Palette) Green(s string) string { return p.wrap("\033[32m", s) }

// Yellow renders text in yellow.
func (p Palette) Yellow(s string) string { return p.wrap("\033[33m", s) }

// Magenta renders text in magenta.
func (p Palette) Magenta(s string) string { return p.wrap("\033[35m", s) }

// Cyan renders text in cyan.
func (p Palette) Cyan(s string) string { return p.wrap("\033[36m", s) }

// Gray renders text in gray/white.
func (p Palette) Gray(s string) string { return p.wrap("\033[37m", s) }

// Symbols for host and forward status indicators.
func (p Palette) GreenDot() string  { return p.Green("●") }
func (p Palette) YellowDot() string { return p.Yellow("○") }
func (p Palette) RedDot() string    { return p.Red("●") }
func (p Palette) GrayDot() string   { return p.Gray("○") }
func (p Palette) RedX() string      { return p.Red("✗") }
func (p Palette) GreenCheck() string { return p.Green("✓") }
