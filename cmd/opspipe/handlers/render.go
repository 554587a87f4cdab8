package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/opspipe/internal/dbops"
	"github.com/imamik/opspipe/internal/pipeline"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	greenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	redStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

type styler struct{ styled bool }

func (s styler) render(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return style.Render(text)
}

// renderOutcome produces the closing summary of a run.
func renderOutcome(o *pipeline.Outcome, total int, styled bool) string {
	if o == nil {
		return ""
	}
	s := styler{styled}
	var b strings.Builder

	b.WriteString("\n")
	status := s.render(greenStyle, string(o.Status))
	if !o.Succeeded() {
		status = s.render(redStyle, string(o.Status))
	}
	fmt.Fprintf(&b, "  %s %s\n", s.render(sectionStyle, o.Task), status)
	fmt.Fprintf(&b, "  %s %d/%d\n", s.render(dimStyle, "steps completed:"), o.LastCompleted+1, total)
	if !o.Succeeded() {
		failed := "connect"
		if o.FailedStep >= 0 {
			failed = fmt.Sprintf("step %d", o.FailedStep+1)
		}
		kind := "error"
		if k := pipeline.KindOf(o.Err); k != 0 {
			kind = k.String()
		}
		fmt.Fprintf(&b, "  %s %s (%s)\n", s.render(dimStyle, "failed at:"), failed, kind)
	}
	fmt.Fprintf(&b, "  %s %s\n", s.render(dimStyle, "run:"), o.RunID)
	return b.String()
}

// renderReport formats an inspection as an aligned table.
func renderReport(r *dbops.Report, styled bool) string {
	s := styler{styled}
	var b strings.Builder

	schema := r.Schema
	if schema == "" {
		schema = "default schema"
	}
	b.WriteString("\n")
	b.WriteString(s.render(sectionStyle, fmt.Sprintf("  Tables in %s (%d)", schema, len(r.Tables))))
	b.WriteString("\n")
	if len(r.Tables) == 0 {
		b.WriteString(s.render(dimStyle, "    (none)"))
		b.WriteString("\n")
	}
	for _, t := range r.Tables {
		fmt.Fprintf(&b, "    %s\n", t)
	}

	if len(r.Counts) == 0 {
		return b.String()
	}

	width := 0
	for _, c := range r.Counts {
		width = max(width, len(c.Table))
	}
	b.WriteString("\n")
	b.WriteString(s.render(sectionStyle, "  Row counts"))
	b.WriteString("\n")
	for _, c := range r.Counts {
		name := fmt.Sprintf("%-*s", width, c.Table)
		if c.Found {
			fmt.Fprintf(&b, "    %s  %d\n", name, c.Rows)
		} else {
			fmt.Fprintf(&b, "    %s  %s\n", name, s.render(redStyle, "not found"))
		}
	}
	return b.String()
}
