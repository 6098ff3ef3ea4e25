package story

import (
	"regexp"
)

// BrokenLink is a reference to a passage that does not exist.
type BrokenLink struct {
	From   string
	Target string
	// Kind is "link", "goto", "display" or "link-goto".
	Kind string
}

// Report summarises a static check of a story.
type Report struct {
	Title       string
	Start       string
	Passages    int
	BrokenLinks []BrokenLink
	Unreachable []string
	Warnings    []string
}

// OK reports whether every static reference resolves.
func (r Report) OK() bool {
	return len(r.BrokenLinks) == 0
}

type reference struct {
	target string
	kind   string
}

var (
	lintLinkRegex     = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	lintMacroRegex    = regexp.MustCompile(`\((goto|display):\s*["']([^"']*)["']\s*\)`)
	lintLinkGotoRegex = regexp.MustCompile(`\(link-goto:\s*["']([^"']*)["']\s*(?:,\s*["']([^"']*)["']\s*)?\)`)
)

// references lists the passage names text refers to with literal targets.
// Targets computed from expressions are only known at play time.
func references(text string) []reference {
	var refs []reference

	for _, m := range lintLinkRegex.FindAllStringSubmatch(text, -1) {
		_, target := parseLink(m[1])
		refs = append(refs, reference{target: target, kind: "link"})
	}
	for _, m := range lintMacroRegex.FindAllStringSubmatch(text, -1) {
		refs = append(refs, reference{target: m[2], kind: m[1]})
	}
	for _, m := range lintLinkGotoRegex.FindAllStringSubmatch(text, -1) {
		target := m[1]
		if m[2] != "" {
			target = m[2]
		}
		refs = append(refs, reference{target: target, kind: "link-goto"})
	}

	return refs
}

// Lint checks every literal passage reference in src and finds playable
// passages that cannot be reached from start.
func Lint(src *Source, start string) Report {
	report := Report{
		Title:    src.Title,
		Start:    start,
		Passages: len(src.Passages),
		Warnings: append([]string(nil), src.Warnings...),
	}

	edges := make(map[string][]string, len(src.Passages))
	for _, p := range src.Passages {
		for _, ref := range references(p.Text) {
			target, ok := src.Passage(ref.target)
			if !ok || (ref.kind != "display" && !target.Playable()) {
				report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
					From:   p.Name,
					Target: ref.target,
					Kind:   ref.kind,
				})
				continue
			}
			edges[p.Name] = append(edges[p.Name], target.Name)
		}
	}

	// BFS over static references from the start passage.
	reached := map[string]bool{start: true}
	if _, ok := src.Passage(PassageStoryInit); ok {
		reached[PassageStoryInit] = true
	}
	queue := make([]string, 0, len(reached))
	for name := range reached {
		queue = append(queue, name)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range edges[name] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, p := range src.Passages {
		if p.Playable() && !reached[p.Name] {
			report.Unreachable = append(report.Unreachable, p.Name)
		}
	}

	return report
}
