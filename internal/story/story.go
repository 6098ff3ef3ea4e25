// Package story implements the narrative engine gotale plays: it parses Twee 3
// source, renders Harlowe-style passage markup and tracks story state
// (current passage, variables, visit counts) between player choices.
//
// The engine is driven through a small contract: Continue or
// ContinueMaximally while CanContinue reports more text, then present
// CurrentChoices and resume with ChooseChoiceIndex. Problems found while
// running the story are collected as errors for the current advance instead
// of being returned, so a host can surface them and keep playing.
package story

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultExprTimeout bounds a single expression evaluation.
	DefaultExprTimeout = 2 * time.Second

	// maxDiverts is how many passages may be entered without a player
	// choice before the flow is considered stuck.
	maxDiverts = 1000
)

// ErrInvalidChoice is returned when a choice index does not refer to the
// current choice list.
var ErrInvalidChoice = errors.New("invalid choice")

// Choice is one option offered at a branch point.
type Choice struct {
	// Index is the 0-based position passed to ChooseChoiceIndex.
	Index  int
	Text   string
	Target string
}

// Story is a running story. It is not safe for concurrent use.
type Story struct {
	src    *Source
	expr   *evaluator
	logger zerolog.Logger

	exprTimeout   time.Duration
	startOverride string

	// lines rendered but not yet returned by Continue
	pending []string
	// passage queued to be rendered next, empty when the flow is blocked
	next    string
	choices []Choice

	errors      []string
	carryErrors []string

	current string
	visits  map[string]int
	path    []string
	diverts int
}

// Option configures a Story.
type Option func(*Story)

// WithLogger sets the logger used for engine tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Story) {
		s.logger = logger
	}
}

// WithExprTimeout bounds each expression evaluation. Zero disables the bound.
func WithExprTimeout(d time.Duration) Option {
	return func(s *Story) {
		s.exprTimeout = d
	}
}

// WithStartPassage overrides the passage play begins at.
func WithStartPassage(name string) Option {
	return func(s *Story) {
		s.startOverride = name
	}
}

// New parses Twee source and prepares a story positioned at its start.
func New(text string, opts ...Option) (*Story, error) {
	src, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return NewFromSource(src, opts...)
}

// NewFromSource prepares a story from already parsed source.
func NewFromSource(src *Source, opts ...Option) (*Story, error) {
	s := &Story{
		src:         src,
		logger:      zerolog.Nop(),
		exprTimeout: DefaultExprTimeout,
		visits:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	start, err := src.StartPassage(s.startOverride)
	if err != nil {
		return nil, err
	}

	s.expr, err = newEvaluator(s.exprTimeout, s.VisitCount, func() string { return s.current })
	if err != nil {
		return nil, fmt.Errorf("failed to create expression runtime: %w", err)
	}

	if init, ok := src.Passage(PassageStoryInit); ok {
		s.current = init.Name
		// StoryInit only sets up state; its text and links are discarded.
		s.renderPassage(init)
		s.current = ""
		s.carryErrors, s.errors = s.errors, nil
	}

	s.next = start.Name
	s.logger.Debug().
		Str("title", src.Title).
		Str("start", start.Name).
		Int("passages", len(src.Passages)).
		Msg("story ready")

	return s, nil
}

// Title returns the story title, if the source declared one.
func (s *Story) Title() string {
	return s.src.Title
}

// Source returns the parsed source the story runs.
func (s *Story) Source() *Source {
	return s.src
}

// CanContinue reports whether Continue would produce more text.
func (s *Story) CanContinue() bool {
	return len(s.pending) > 0 || s.next != ""
}

// Continue returns the next line of text, including its trailing newline.
// Errors from the previous advance are cleared first.
func (s *Story) Continue() string {
	s.resetErrors()
	return s.continueLine()
}

// ContinueMaximally returns all text up to the next branch point or the end
// of the story.
func (s *Story) ContinueMaximally() string {
	s.resetErrors()

	var text strings.Builder
	for s.CanContinue() {
		text.WriteString(s.continueLine())
	}
	return text.String()
}

func (s *Story) continueLine() string {
	for len(s.pending) == 0 && s.next != "" {
		s.enter(s.next)
	}
	if len(s.pending) == 0 {
		return ""
	}

	line := s.pending[0]
	s.pending = s.pending[1:]
	return line + "\n"
}

// enter renders the named passage and queues its output.
func (s *Story) enter(name string) {
	s.next = ""
	s.choices = nil

	p, ok := s.src.Passage(name)
	if !ok || !p.Playable() {
		s.addError(fmt.Sprintf("passage %q not found", name))
		return
	}

	s.current = p.Name
	s.visits[p.Name]++
	s.path = append(s.path, p.Name)

	res := s.renderPassage(p)
	s.pending = append(s.pending, res.lines...)

	if res.divert == "" {
		s.choices = res.choices
		return
	}

	s.diverts++
	if s.diverts > maxDiverts {
		s.addError(fmt.Sprintf("passage %q: flow stopped after %d passages without a choice", p.Name, maxDiverts))
		return
	}
	s.logger.Debug().Str("from", p.Name).Str("to", res.divert).Msg("divert")
	s.next = res.divert
}

// CurrentChoices returns the choices at the current branch point. It is
// empty while the story can still continue.
func (s *Story) CurrentChoices() []Choice {
	if s.CanContinue() || len(s.choices) == 0 {
		return nil
	}
	choices := make([]Choice, len(s.choices))
	copy(choices, s.choices)
	return choices
}

// ChooseChoiceIndex resumes the story from the choice at index i of the
// current choice list.
func (s *Story) ChooseChoiceIndex(i int) error {
	if s.CanContinue() {
		return fmt.Errorf("%w: story has not reached a branch point", ErrInvalidChoice)
	}
	if i < 0 || i >= len(s.choices) {
		return fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidChoice, i, len(s.choices))
	}

	choice := s.choices[i]
	s.choices = nil
	s.diverts = 0
	s.next = choice.Target

	s.logger.Debug().
		Str("passage", s.current).
		Int("index", i).
		Str("target", choice.Target).
		Msg("choice taken")

	return nil
}

// HasError reports whether the last advance produced errors.
func (s *Story) HasError() bool {
	return len(s.errors) > 0
}

// CurrentErrors returns the errors produced by the last advance.
func (s *Story) CurrentErrors() []string {
	errs := make([]string, len(s.errors))
	copy(errs, s.errors)
	return errs
}

// VisitCount returns how many times the named passage has been entered.
func (s *Story) VisitCount(name string) int {
	return s.visits[name]
}

// Path returns the passages entered so far, in order.
func (s *Story) Path() []string {
	path := make([]string, len(s.path))
	copy(path, s.path)
	return path
}

// Variables returns a snapshot of every story variable that has been set.
func (s *Story) Variables() map[string]any {
	return s.expr.variables()
}

func (s *Story) addError(msg string) {
	s.errors = append(s.errors, msg)
	s.logger.Warn().Str("passage", s.current).Msg(msg)
}

// resetErrors clears errors at the start of an advance. Errors raised by
// StoryInit are held back for the first advance.
func (s *Story) resetErrors() {
	s.errors = s.carryErrors
	s.carryErrors = nil
}
