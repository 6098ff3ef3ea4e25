// Package console holds the terminal-facing pieces of the player: capability
// detection, color formatting and validated choice input.
package console

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// highlight is ANSI cyan.
var highlight = termenv.ANSI.Color("6")

// Colorize wraps text in ANSI cyan when color is enabled.
func Colorize(text string, color bool) string {
	if !color {
		return text
	}
	return termenv.String(text).Foreground(highlight).String()
}

// DetectColor reports whether w is an interactive terminal that should get
// color escapes. Windows consoles are treated as plain.
func DetectColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isTerminal(f.Fd()) && runtime.GOOS != "windows"
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ColorMode selects how color is decided.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Resolve turns a mode into a final on/off decision. detected is the result
// of DetectColor and is only consulted in auto mode.
func (m ColorMode) Resolve(detected bool) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return detected
	}
}
