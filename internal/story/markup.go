package story

import (
	"fmt"
	"regexp"
	"strings"
)

const maxDisplayDepth = 32

// renderResult is what rendering one passage yields.
type renderResult struct {
	lines   []string
	choices []Choice
	// divert is the passage a (goto:) sent the flow to, if any.
	divert string
}

// renderer walks passage markup, writing visible text and collecting choices.
type renderer struct {
	story   *Story
	passage string
	out     strings.Builder
	choices []Choice
	divert  string
	stopped bool
	depth   int
}

// renderPassage renders p in the story's current state.
func (s *Story) renderPassage(p *Passage) renderResult {
	r := &renderer{story: s, passage: p.Name}
	r.render(p.Text)

	return renderResult{
		lines:   splitLines(r.out.String()),
		choices: r.choices,
		divert:  r.divert,
	}
}

// splitLines trims every line and drops the blank ones.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (r *renderer) errorf(format string, args ...any) {
	r.story.addError(fmt.Sprintf("passage %q: %s", r.passage, fmt.Sprintf(format, args...)))
}

func (r *renderer) render(s string) {
	for i := 0; i < len(s) && !r.stopped; {
		switch {
		case strings.HasPrefix(s[i:], "<!--"):
			end := strings.Index(s[i+4:], "-->")
			if end < 0 {
				return
			}
			i += 4 + end + 3

		case strings.HasPrefix(s[i:], "[[") && !strings.HasPrefix(s[i:], "[[["):
			end := strings.Index(s[i+2:], "]]")
			if end < 0 {
				r.out.WriteString("[[")
				i += 2
				continue
			}
			text, target := parseLink(s[i+2 : i+2+end])
			r.addChoice(text, target)
			i += 2 + end + 2

		case s[i] == '(':
			m, ok := macroAt(s, i)
			if !ok {
				r.out.WriteByte(s[i])
				i++
				continue
			}
			i = r.macro(s, m)

		case s[i] == '$' && i+1 < len(s) && isIdentStart(s[i+1]):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			text, err := r.story.expr.text(s[i:j])
			if err != nil {
				r.errorf("%v", err)
			}
			r.out.WriteString(text)
			i = j

		default:
			r.out.WriteByte(s[i])
			i++
		}
	}
}

func (r *renderer) addChoice(text, target string) {
	if target == "" {
		r.errorf("link %q has no target", text)
		return
	}
	r.choices = append(r.choices, Choice{
		Index:  len(r.choices),
		Text:   text,
		Target: target,
	})
}

// parseLink splits the body of [[...]] into display text and target passage.
func parseLink(body string) (text, target string) {
	switch {
	case strings.Contains(body, "->"):
		i := strings.LastIndex(body, "->")
		text, target = body[:i], body[i+2:]
	case strings.Contains(body, "<-"):
		i := strings.Index(body, "<-")
		target, text = body[:i], body[i+2:]
	case strings.Contains(body, "|"):
		i := strings.LastIndex(body, "|")
		text, target = body[:i], body[i+1:]
	default:
		text, target = body, body
	}
	return strings.TrimSpace(text), strings.TrimSpace(target)
}

// macroCall is a parsed (name: args) occurrence.
type macroCall struct {
	name  string
	args  string
	start int
	// end is the index just past the closing paren.
	end int
}

var macroNameRegex = regexp.MustCompile(`^\(([A-Za-z][A-Za-z0-9-]*):`)

// macroAt parses a macro call starting at s[i] == '('.
func macroAt(s string, i int) (macroCall, bool) {
	m := macroNameRegex.FindStringSubmatch(s[i:])
	if m == nil {
		return macroCall{}, false
	}
	argsStart := i + len(m[0])
	closeIdx := matchClose(s, i, '(', ')', true)
	if closeIdx < 0 {
		return macroCall{}, false
	}
	return macroCall{
		name:  strings.ToLower(m[1]),
		args:  strings.TrimSpace(s[argsStart:closeIdx]),
		start: i,
		end:   closeIdx + 1,
	}, true
}

// matchClose finds the bracket closing the one at s[open]. String literals
// are skipped when quotes is set.
func matchClose(s string, open int, openCh, closeCh byte, quotes bool) int {
	depth := 0
	for j := open; j < len(s); j++ {
		c := s[j]
		switch {
		case quotes && (c == '"' || c == '\'' || c == '`'):
			j = skipString(s, j) - 1
		case c == openCh:
			depth++
		case c == closeCh:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// hookAt returns the contents of the [hook] starting exactly at s[i] and the
// index just past it.
func hookAt(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '[' {
		return "", i, false
	}
	closeIdx := matchClose(s, i, '[', ']', false)
	if closeIdx < 0 {
		return "", i, false
	}
	return s[i+1 : closeIdx], closeIdx + 1, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

var (
	setArgsRegex = regexp.MustCompile(`(?s)^(\$[A-Za-z_][A-Za-z0-9_]*)\s+to\s+(.+)$`)
	putArgsRegex = regexp.MustCompile(`(?s)^(.+?)\s+into\s+(\$[A-Za-z_][A-Za-z0-9_]*)$`)
)

// macro executes m and returns the index rendering resumes at.
func (r *renderer) macro(s string, m macroCall) int {
	switch m.name {
	case "if", "unless":
		return r.conditional(s, m)

	case "else-if", "else":
		r.errorf("(%s:) without a preceding (if:) or (unless:)", m.name)
		if _, next, ok := hookAt(s, m.end); ok {
			return next
		}
		return m.end

	case "set":
		parts := setArgsRegex.FindStringSubmatch(m.args)
		if parts == nil {
			r.errorf("(set:) expects $variable to value, got %q", m.args)
			return m.end
		}
		if err := r.story.expr.assign(parts[1], parts[2]); err != nil {
			r.errorf("(set:) %v", err)
		}
		return m.end

	case "put":
		parts := putArgsRegex.FindStringSubmatch(m.args)
		if parts == nil {
			r.errorf("(put:) expects value into $variable, got %q", m.args)
			return m.end
		}
		if err := r.story.expr.assign(parts[2], parts[1]); err != nil {
			r.errorf("(put:) %v", err)
		}
		return m.end

	case "print":
		text, err := r.story.expr.text(m.args)
		if err != nil {
			r.errorf("(print:) %v", err)
		}
		r.out.WriteString(text)
		return m.end

	case "display":
		r.display(m.args)
		return m.end

	case "goto":
		target, err := r.story.expr.text(m.args)
		if err != nil {
			r.errorf("(goto:) %v", err)
			return m.end
		}
		r.divert = target
		r.stopped = true
		return m.end

	case "link-goto":
		r.linkGoto(m.args)
		return m.end

	default:
		r.errorf("unknown macro (%s:)", m.name)
		return m.end
	}
}

// conditional runs an (if:)/(unless:) chain with any (else-if:) and (else:)
// that follow it.
func (r *renderer) conditional(s string, m macroCall) int {
	hook, next, ok := hookAt(s, m.end)
	if !ok {
		r.errorf("(%s:) must be followed by a [hook]", m.name)
		return m.end
	}

	taken := r.test(m)
	if taken {
		r.render(hook)
	}
	i := next

	for !r.stopped {
		j := skipSpace(s, i)
		if j >= len(s) || s[j] != '(' {
			break
		}
		link, ok := macroAt(s, j)
		if !ok || (link.name != "else-if" && link.name != "else") {
			break
		}
		hook, next, ok := hookAt(s, link.end)
		if !ok {
			r.errorf("(%s:) must be followed by a [hook]", link.name)
			return link.end
		}
		if !taken && (link.name == "else" || r.test(link)) {
			taken = true
			r.render(hook)
		}
		i = next
		if link.name == "else" {
			break
		}
	}

	return i
}

func (r *renderer) test(m macroCall) bool {
	ok, err := r.story.expr.condition(m.args)
	if err != nil {
		r.errorf("(%s:) %v", m.name, err)
		return false
	}
	if m.name == "unless" {
		return !ok
	}
	return ok
}

func (r *renderer) display(args string) {
	name, err := r.story.expr.text(args)
	if err != nil {
		r.errorf("(display:) %v", err)
		return
	}
	p, ok := r.story.src.Passage(name)
	if !ok {
		r.errorf("(display:) passage %q not found", name)
		return
	}
	if r.depth >= maxDisplayDepth {
		r.errorf("(display:) nested deeper than %d passages", maxDisplayDepth)
		return
	}

	outer := r.passage
	r.passage = p.Name
	r.depth++
	r.render(p.Text)
	r.depth--
	r.passage = outer
}

func (r *renderer) linkGoto(args string) {
	val, err := r.story.expr.eval("[" + args + "]")
	if err != nil {
		r.errorf("(link-goto:) %v", err)
		return
	}
	items, ok := val.Export().([]any)
	if !ok || len(items) == 0 || len(items) > 2 {
		r.errorf("(link-goto:) expects a link text and an optional passage name")
		return
	}
	text := fmt.Sprint(items[0])
	target := text
	if len(items) == 2 {
		target = fmt.Sprint(items[1])
	}
	r.addChoice(text, target)
}
