package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	choicePrompt   = "\nEnter choice: "
	invalidMessage = "Invalid choice!"
)

// ErrNoInput is returned when input ends while a choice is pending.
var ErrNoInput = errors.New("input closed while waiting for a choice")

// ChoiceReader prompts for and validates 1-based choice numbers.
type ChoiceReader struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
}

// NewChoiceReader reads lines from in and writes prompts to out.
func NewChoiceReader(in io.Reader, out io.Writer, color bool) *ChoiceReader {
	return &ChoiceReader{
		in:    bufio.NewReader(in),
		out:   out,
		color: color,
	}
}

// ReadChoice blocks until the user enters a number in [1, n] and returns it
// as a 0-based index. Anything else is rejected and the prompt repeats.
func (r *ChoiceReader) ReadChoice(n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("no choices to read from (n=%d)", n)
	}

	for {
		fmt.Fprint(r.out, Colorize(choicePrompt, r.color))

		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("failed to read choice: %w", err)
		}
		if errors.Is(err, io.EOF) && line == "" {
			return 0, ErrNoInput
		}

		if choice, ok := ParseChoice(line, n); ok {
			return choice - 1, nil
		}
		fmt.Fprintln(r.out, invalidMessage)
	}
}

// ParseChoice parses a 1-based choice number and checks it against n.
func ParseChoice(line string, n int) (int, bool) {
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > n {
		return 0, false
	}
	return choice, true
}
