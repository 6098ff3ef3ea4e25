package story

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Special passage names from the Twee 3 specification.
const (
	PassageStoryTitle = "StoryTitle"
	PassageStoryData  = "StoryData"
	PassageStoryInit  = "StoryInit"
	PassageStart      = "Start"
)

// ErrNoPassages is returned when a document contains nothing playable.
var ErrNoPassages = errors.New("story has no playable passages")

// ParseError reports malformed story source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Passage is a single named block of story text.
type Passage struct {
	Name     string
	Tags     []string
	Metadata map[string]any
	Text     string
	// Line is the 1-based line of the passage header.
	Line int
}

// HasTag reports whether the passage carries the given tag.
func (p *Passage) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Playable reports whether the passage can be navigated to during play.
func (p *Passage) Playable() bool {
	switch p.Name {
	case PassageStoryTitle, PassageStoryData, PassageStoryInit:
		return false
	}
	return !p.HasTag("script") && !p.HasTag("stylesheet")
}

// StoryData mirrors the JSON body of the StoryData passage.
type StoryData struct {
	IFID          string `json:"ifid"`
	Format        string `json:"format"`
	FormatVersion string `json:"format-version"`
	Start         string `json:"start"`
}

// Source is a parsed story document. Passages keep document order.
type Source struct {
	Title    string
	Data     StoryData
	Passages []*Passage
	// Warnings collects recoverable problems found while parsing.
	Warnings []string

	byName map[string]*Passage
}

// Passage looks up a passage by name.
func (s *Source) Passage(name string) (*Passage, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// StartPassage resolves the passage play begins at. An explicit override wins,
// then StoryData's start, then a passage named Start, then the first playable
// passage in the document.
func (s *Source) StartPassage(override string) (*Passage, error) {
	for _, name := range []string{override, s.Data.Start} {
		if name == "" {
			continue
		}
		p, ok := s.byName[name]
		if !ok {
			return nil, &ParseError{Msg: fmt.Sprintf("start passage %q not found", name)}
		}
		if !p.Playable() {
			return nil, &ParseError{Msg: fmt.Sprintf("start passage %q is not playable", name)}
		}
		return p, nil
	}

	if p, ok := s.byName[PassageStart]; ok && p.Playable() {
		return p, nil
	}

	for _, p := range s.Passages {
		if p.Playable() {
			return p, nil
		}
	}

	return nil, ErrNoPassages
}

// :: Name [tag1 tag2] {"position":"100,200"}
var passageHeaderRegex = regexp.MustCompile(`^::\s*(.*?)(?:\s*\[([^\]]*)\])?(?:\s*(\{.*\}))?\s*$`)

// Parse reads Twee 3 source into passages.
func Parse(text string) (*Source, error) {
	src := &Source{
		byName: make(map[string]*Passage),
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var current *Passage
	var content strings.Builder
	lineNo := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		current.Text = strings.TrimSpace(content.String())
		content.Reset()
		if prev, exists := src.byName[current.Name]; exists {
			return &ParseError{
				Line: current.Line,
				Msg:  fmt.Sprintf("duplicate passage %q (first defined on line %d)", current.Name, prev.Line),
			}
		}
		src.byName[current.Name] = current
		src.Passages = append(src.Passages, current)
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !strings.HasPrefix(line, "::") {
			if current == nil {
				if strings.TrimSpace(line) != "" {
					return nil, &ParseError{Line: lineNo, Msg: "text before first passage header"}
				}
				continue
			}
			content.WriteString(line)
			content.WriteString("\n")
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}

		passage, err := parseHeader(line, lineNo, src)
		if err != nil {
			return nil, err
		}
		current = passage
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read story source: %w", err)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	if err := src.applySpecialPassages(); err != nil {
		return nil, err
	}

	return src, nil
}

func parseHeader(line string, lineNo int, src *Source) (*Passage, error) {
	matches := passageHeaderRegex.FindStringSubmatch(line)
	if matches == nil {
		return nil, &ParseError{Line: lineNo, Msg: "malformed passage header"}
	}

	name := strings.TrimSpace(matches[1])
	if name == "" {
		return nil, &ParseError{Line: lineNo, Msg: "passage header has no name"}
	}

	passage := &Passage{
		Name: name,
		Tags: strings.Fields(matches[2]),
		Line: lineNo,
	}

	if raw := matches[3]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &passage.Metadata); err != nil {
			// Twee 3 says bad metadata is ignored, not fatal.
			src.Warnings = append(src.Warnings,
				fmt.Sprintf("line %d: ignoring malformed metadata for %q: %v", lineNo, name, err))
			passage.Metadata = nil
		}
	}

	return passage, nil
}

func (s *Source) applySpecialPassages() error {
	if p, ok := s.byName[PassageStoryTitle]; ok {
		s.Title = strings.TrimSpace(p.Text)
	}

	if p, ok := s.byName[PassageStoryData]; ok && p.Text != "" {
		if err := json.Unmarshal([]byte(p.Text), &s.Data); err != nil {
			return &ParseError{Line: p.Line, Msg: fmt.Sprintf("invalid StoryData: %v", err)}
		}
	}

	for _, p := range s.Passages {
		if p.Playable() {
			return nil
		}
	}
	return ErrNoPassages
}
