package pipeline

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Observer is the Reporter: a pure sink for run progress. It never
// influences control flow.
type Observer interface {
	// Printf writes a free-form trace line.
	Printf(format string, v ...any)

	// Event emits a structured event.
	Event(event Event)

	// WithFields returns a new Observer with additional context fields.
	WithFields(fields map[string]string) Observer
}

// Event represents a structured pipeline event.
type Event struct {
	Type      EventType
	Task      string
	Step      string
	Index     int
	Total     int
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of pipeline event.
type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
	EventConnectRetry  EventType = "connect.retry"
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventStepNote      EventType = "step.note"
	EventStepOutput    EventType = "step.output"
	EventHandleClosed  EventType = "handle.closed"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")

	okStyle     = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	noteStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	activeStyle = lipgloss.NewStyle().Foreground(colorBlue)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	markOK     = "[OK]"
	markFail   = "[!!]"
	markActive = "[..]"
	markNote   = "[??]"
)

// ConsoleObserver writes a human-readable trace of the run.
type ConsoleObserver struct {
	mu            *sync.Mutex
	out           io.Writer
	styled        bool
	contextFields map[string]string
}

// NewConsoleObserver creates an observer writing to stdout, styled when
// stdout is a terminal.
func NewConsoleObserver() *ConsoleObserver {
	return NewWriterObserver(os.Stdout, IsTerminal(os.Stdout))
}

// NewWriterObserver creates an observer writing to w.
func NewWriterObserver(w io.Writer, styled bool) *ConsoleObserver {
	return &ConsoleObserver{
		mu:            &sync.Mutex{},
		out:           w,
		styled:        styled,
		contextFields: make(map[string]string),
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	o.write(fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	if msg := o.formatEvent(event); msg != "" {
		o.write(msg)
	}
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleObserver{
		mu:            o.mu,
		out:           o.out,
		styled:        o.styled,
		contextFields: merged,
	}
}

func (o *ConsoleObserver) write(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintln(o.out, line)
}

func (o *ConsoleObserver) render(style lipgloss.Style, s string) string {
	if !o.styled {
		return s
	}
	return style.Render(s)
}

// formatEvent formats an event for console output.
// handle.closed is rendered as a dim line.
func (o *ConsoleObserver) formatEvent(event Event) string {
	position := ""
	if event.Total > 0 {
		position = fmt.Sprintf(" (%d/%d)", event.Index+1, event.Total)
	}

	switch event.Type {
	case EventRunStarted:
		return o.render(activeStyle, fmt.Sprintf("==> %s: %s", event.Task, event.Message)) + o.fieldSuffix(event.Fields)
	case EventStepStarted:
		return fmt.Sprintf("%s %s%s", o.render(activeStyle, markActive), event.Step, position)
	case EventStepCompleted:
		return fmt.Sprintf("%s %s%s %s", o.render(okStyle, markOK), event.Step, position, o.render(dimStyle, event.Message))
	case EventStepFailed:
		return fmt.Sprintf("%s %s%s failed: %s", o.render(failStyle, markFail), event.Step, position, event.Message)
	case EventStepNote, EventConnectRetry:
		return fmt.Sprintf("%s %s", o.render(noteStyle, markNote), event.Message)
	case EventStepOutput:
		var b strings.Builder
		for i, line := range strings.Split(event.Message, "\n") {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("    | ")
			b.WriteString(line)
		}
		return o.render(dimStyle, b.String())
	case EventRunCompleted:
		return o.render(okStyle, fmt.Sprintf("%s %s: %s", markOK, event.Task, event.Message))
	case EventRunFailed:
		return o.render(failStyle, fmt.Sprintf("%s %s: %s", markFail, event.Task, event.Message))
	case EventHandleClosed:
		return o.render(dimStyle, fmt.Sprintf("    %s", event.Message))
	default:
		return fmt.Sprintf("%s %s%s", event.Type, event.Message, o.fieldSuffix(event.Fields))
	}
}

func (o *ConsoleObserver) fieldSuffix(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return " " + o.render(dimStyle, "("+strings.Join(parts, ", ")+")")
}

// DiscardObserver drops everything.
type DiscardObserver struct{}

// Printf implements Observer.
func (DiscardObserver) Printf(string, ...any) {}

// Event implements Observer.
func (DiscardObserver) Event(Event) {}

// WithFields implements Observer.
func (d DiscardObserver) WithFields(map[string]string) Observer { return d }
