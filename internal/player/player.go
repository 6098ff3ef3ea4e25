// Package player runs the playback loop: it advances a story engine, renders
// narrative text and choice menus, and feeds validated choices back until the
// story is exhausted.
package player

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/itsmostafa/gotale/internal/console"
	"github.com/itsmostafa/gotale/internal/story"
)

// Engine is the story interpreter the loop drives.
type Engine interface {
	CanContinue() bool
	ContinueMaximally() string
	CurrentChoices() []story.Choice
	ChooseChoiceIndex(i int) error
	HasError() bool
	CurrentErrors() []string
}

// Config holds the playback configuration
type Config struct {
	Engine Engine
	// Input supplies choice numbers, one per line.
	Input io.Reader
	// Output receives narrative text, menus and the end marker.
	Output io.Writer
	// Errors receives engine diagnostics.
	Errors io.Writer
	// Color enables ANSI highlighting of menus and prompts.
	Color  bool
	Logger zerolog.Logger
}

// Run plays the story to its end.
func Run(cfg Config) error {
	if cfg.Engine == nil {
		return fmt.Errorf("no story engine configured")
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Errors == nil {
		cfg.Errors = os.Stderr
	}

	reader := console.NewChoiceReader(cfg.Input, cfg.Output, cfg.Color)
	eng := cfg.Engine

	step := 0
	for more(eng) {
		step++

		text := eng.ContinueMaximally()
		FormatText(cfg.Output, text)

		if eng.HasError() {
			errs := eng.CurrentErrors()
			FormatDiagnostics(cfg.Errors, errs)
			cfg.Logger.Warn().Int("step", step).Int("errors", len(errs)).Msg("engine reported errors")
		}

		choices := eng.CurrentChoices()
		cfg.Logger.Debug().
			Int("step", step).
			Int("chars", len(text)).
			Int("choices", len(choices)).
			Msg("advance")

		if len(choices) == 0 {
			continue
		}

		FormatChoices(cfg.Output, choices, cfg.Color)

		index, err := reader.ReadChoice(len(choices))
		if err != nil {
			return fmt.Errorf("failed to read choice: %w", err)
		}

		if err := eng.ChooseChoiceIndex(index); err != nil {
			return fmt.Errorf("failed to select choice %d: %w", index+1, err)
		}
		cfg.Logger.Info().
			Int("step", step).
			Int("index", index).
			Str("choice", choices[index].Text).
			Msg("choice selected")

		fmt.Fprintln(cfg.Output)
	}

	FormatEnd(cfg.Output, cfg.Color)
	cfg.Logger.Info().Int("steps", step).Msg("story finished")

	return nil
}

// more reports whether the engine has content left or a choice pending.
func more(eng Engine) bool {
	return eng.CanContinue() || len(eng.CurrentChoices()) > 0
}
