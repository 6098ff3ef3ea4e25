package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/itsmostafa/gotale/internal/config"
	"github.com/itsmostafa/gotale/internal/console"
	"github.com/itsmostafa/gotale/internal/story"
)

func newCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check <story-file>",
		Short: "Check a story for broken and unreachable passages",
		Long: `Check parses a story and follows every literal link, goto, display and
link-goto target from the start passage. It exits non-zero when a target does
not exist.`,
		Args: storyArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkStory(cmd.OutOrStdout(), *cfg, args[0])
		},
	}
}

func checkStory(w io.Writer, cfg config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	doc, err := story.LoadDocument(path)
	if err != nil {
		return err
	}

	src, err := story.Parse(doc.Text)
	if err != nil {
		return fmt.Errorf("failed to parse story %s: %w", path, err)
	}

	start, err := src.StartPassage(cfg.Start)
	if err != nil {
		return fmt.Errorf("failed to resolve start passage: %w", err)
	}

	report := story.Lint(src, start.Name)
	styles := newReportStyles(w, cfg.ColorMode().Resolve(console.DetectColor(w)))
	styles.render(w, path, report)

	if !report.OK() {
		return fmt.Errorf("%d broken reference(s) in %s", len(report.BrokenLinks), path)
	}
	return nil
}

type reportStyles struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	box     lipgloss.Style
}

// newReportStyles builds the report styles on a renderer bound to w, so the
// color decision follows --color rather than lipgloss's own detection.
func newReportStyles(w io.Writer, color bool) reportStyles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return reportStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("220")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1),
	}
}

func (s reportStyles) render(w io.Writer, path string, report story.Report) {
	title := report.Title
	if title == "" {
		title = path
	}

	status := s.success.Render("OK")
	if !report.OK() {
		status = s.err.Render("BROKEN")
	}

	summary := fmt.Sprintf("%s\n%s %s  %s %d  %s",
		s.title.Render(title),
		s.dim.Render("Start:"), report.Start,
		s.dim.Render("Passages:"), report.Passages,
		status,
	)
	fmt.Fprintln(w, s.box.Render(summary))

	if len(report.BrokenLinks) > 0 {
		fmt.Fprintln(w, s.err.Render("Broken references:"))
		for _, l := range report.BrokenLinks {
			fmt.Fprintf(w, "  %s %s %s %s\n", l.From, s.dim.Render("->"), l.Target, s.dim.Render("("+l.Kind+")"))
		}
	}

	if len(report.Unreachable) > 0 {
		fmt.Fprintln(w, s.warn.Render("Unreachable passages:"))
		fmt.Fprintf(w, "  %s\n", strings.Join(report.Unreachable, ", "))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "%s %s\n", s.warn.Render("warning:"), warning)
	}
}
