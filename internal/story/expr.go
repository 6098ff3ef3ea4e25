package story

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// evaluator runs story expressions in a goja runtime that lives as long as
// the story. Story variables are runtime globals named $name.
type evaluator struct {
	vm      *goja.Runtime
	timeout time.Duration
	// names of variables ever assigned, for Variables()
	assigned map[string]struct{}
}

func newEvaluator(timeout time.Duration, visits func(string) int, current func() string) (*evaluator, error) {
	e := &evaluator{
		vm:       goja.New(),
		timeout:  timeout,
		assigned: make(map[string]struct{}),
	}

	builtins := map[string]any{
		"visits":  func(name string) int { return visits(name) },
		"visited": func(name string) bool { return visits(name) > 0 },
		"passage": func() string { return current() },
	}
	for name, fn := range builtins {
		if err := e.vm.Set(name, fn); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	return e, nil
}

// eval evaluates a story expression and returns its value.
func (e *evaluator) eval(expr string) (goja.Value, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	js, vars := translateExpr(expr)
	for _, name := range vars {
		// Unset story variables read as 0.
		if e.vm.Get(name) == nil {
			if err := e.vm.Set(name, 0); err != nil {
				return nil, fmt.Errorf("failed to default %s: %w", name, err)
			}
		}
	}

	var timer *time.Timer
	if e.timeout > 0 {
		timer = time.AfterFunc(e.timeout, func() {
			e.vm.Interrupt("expression timed out")
		})
	}
	val, err := e.vm.RunString(js)
	if timer != nil {
		timer.Stop()
	}
	e.vm.ClearInterrupt()

	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			return nil, fmt.Errorf("expression %q interrupted: %v", expr, interrupted.Value())
		}
		return nil, fmt.Errorf("expression %q: %w", expr, err)
	}
	return val, nil
}

// assign evaluates expr and stores the result in the $-prefixed variable name.
func (e *evaluator) assign(name, expr string) error {
	if !isVariableName(name) {
		return fmt.Errorf("invalid variable name %q", name)
	}
	val, err := e.eval(expr)
	if err != nil {
		return err
	}
	if err := e.vm.Set(name, val); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	e.assigned[name] = struct{}{}
	return nil
}

// condition evaluates expr as a boolean.
func (e *evaluator) condition(expr string) (bool, error) {
	val, err := e.eval(expr)
	if err != nil {
		return false, err
	}
	return val.ToBoolean(), nil
}

// text evaluates expr for printing. undefined and null print as nothing.
func (e *evaluator) text(expr string) (string, error) {
	val, err := e.eval(expr)
	if err != nil {
		return "", err
	}
	return displayValue(val), nil
}

// variables exports every assigned story variable, keyed without the $.
func (e *evaluator) variables() map[string]any {
	names := make([]string, 0, len(e.assigned))
	for name := range e.assigned {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make(map[string]any, len(names))
	for _, name := range names {
		if v := e.vm.Get(name); v != nil {
			vars[strings.TrimPrefix(name, "$")] = v.Export()
		}
	}
	return vars
}

func displayValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func isVariableName(name string) bool {
	if len(name) < 2 || name[0] != '$' || !isIdentStart(name[1]) {
		return false
	}
	for i := 2; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Harlowe keywords and their JavaScript operators.
var keywordOperators = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
	"is":  "===",
}

// translateExpr rewrites Harlowe keywords outside string literals into
// JavaScript operators and returns the $variables the expression reads.
func translateExpr(expr string) (string, []string) {
	var out strings.Builder
	var vars []string
	seen := make(map[string]bool)

	for i := 0; i < len(expr); {
		c := expr[i]

		switch {
		case c == '"' || c == '\'' || c == '`':
			end := skipString(expr, i)
			out.WriteString(expr[i:end])
			i = end

		case c == '$' && i+1 < len(expr) && isIdentStart(expr[i+1]):
			j := i + 1
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			name := expr[i:j]
			if !seen[name] {
				seen[name] = true
				vars = append(vars, name)
			}
			out.WriteString(name)
			i = j

		case isIdentStart(c):
			j := i
			for j < len(expr) && (isIdentPart(expr[j]) || expr[j] == '$') {
				j++
			}
			word := expr[i:j]
			// Property access like a.is stays untouched.
			if i > 0 && expr[i-1] == '.' {
				out.WriteString(word)
				i = j
				continue
			}
			op, isKeyword := keywordOperators[word]
			if !isKeyword {
				out.WriteString(word)
				i = j
				continue
			}
			if word == "is" {
				if k, ok := nextWord(expr, j, "not"); ok {
					op, j = "!==", k
				}
			}
			out.WriteString(" " + op + " ")
			i = j

		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), vars
}

// nextWord reports whether the next word after position i is want, returning
// the position just past it.
func nextWord(s string, i int, want string) (int, bool) {
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	if j == i || !strings.HasPrefix(s[j:], want) {
		return i, false
	}
	end := j + len(want)
	if end < len(s) && isIdentPart(s[end]) {
		return i, false
	}
	return end, true
}

// skipString returns the index just past the string literal starting at i.
// An unterminated literal runs to the end of s.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}
