package player

import (
	"fmt"
	"io"

	"github.com/itsmostafa/gotale/internal/console"
	"github.com/itsmostafa/gotale/internal/story"
)

// EndMarker is printed once the story has nothing left.
const EndMarker = "THE END."

// FormatText writes narrative text exactly as the engine produced it
func FormatText(w io.Writer, text string) {
	fmt.Fprint(w, text)
}

// FormatDiagnostics writes one engine error per line
func FormatDiagnostics(w io.Writer, errs []string) {
	for _, msg := range errs {
		fmt.Fprintln(w, msg)
	}
}

// FormatChoices renders the numbered choice menu, preceded by a blank line
func FormatChoices(w io.Writer, choices []story.Choice, color bool) {
	fmt.Fprintln(w)
	for i, c := range choices {
		fmt.Fprintln(w, console.Colorize(fmt.Sprintf("%d: %s", i+1, c.Text), color))
	}
}

// FormatEnd renders the end-of-story marker
func FormatEnd(w io.Writer, color bool) {
	fmt.Fprintln(w, console.Colorize("\n"+EndMarker, color))
}
