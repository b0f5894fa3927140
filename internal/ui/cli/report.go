package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	coreapp "nilscript/internal/core/app"
	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/data/symbolstore"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	locationStyle = lipgloss.NewStyle().Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// colorEnabled reports whether w is a terminal that should get colours.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type reporter struct {
	out   io.Writer
	color bool
}

func newReporter(out io.Writer, color bool) *reporter {
	return &reporter{out: out, color: color}
}

func (r *reporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *reporter) issue(label string, s lipgloss.Style, issue *cerrors.Issue) {
	loc := issue.File
	if issue.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", issue.File, issue.Line, issue.Column)
	}
	if loc != "" {
		loc = r.style(locationStyle, loc) + ": "
	}
	fmt.Fprintf(r.out, "%s%s %s [%s]\n", loc, r.style(s, label+":"), issue.Message, issue.Code)
}

// Summary prints every diagnostic of a build followed by a one-line status.
func (r *reporter) Summary(s coreapp.Summary) {
	res := s.Result
	for _, issue := range res.Errors {
		r.issue("error", errorStyle, issue)
	}
	for _, issue := range res.Warnings {
		r.issue("warning", warningStyle, issue)
	}

	elapsed := s.Duration.Round(time.Millisecond)
	if res.Failed() {
		fmt.Fprintln(r.out, r.style(errorStyle, fmt.Sprintf("✗ build failed: %d errors, %d warnings in %d files (%s)",
			len(res.Errors), len(res.Warnings), s.Files, elapsed)))
		return
	}
	fmt.Fprintln(r.out, r.style(successStyle, fmt.Sprintf("✓ built %d files with %d warnings (%s)",
		s.Files, len(res.Warnings), elapsed)))
	for _, path := range s.Written {
		fmt.Fprintln(r.out, r.style(statusStyle, "  wrote "+path))
	}
}

// FunctionLines prints one function map as line, signature pairs.
func (r *reporter) FunctionLines(lines []symbolstore.FunctionLine) {
	for _, l := range lines {
		signature := l.Signature
		if signature == "" {
			signature = r.style(statusStyle, "-")
		}
		fmt.Fprintf(r.out, "%d\t%s\n", l.Line, signature)
	}
}
