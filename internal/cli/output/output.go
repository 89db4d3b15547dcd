// Package output renders command results as styled text, markdown tables
// or JSON, depending on the terminal and the --output flag.
package output

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Risk    map[string]lipgloss.Style
}

// DefaultStyles returns the text-mode palette. Risk styles are keyed by
// the tier color name.
func DefaultStyles() *Styles {
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Risk: map[string]lipgloss.Style{
			"red":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			"orange": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
			"green":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		},
	}
}

// Renderer writes command output in the effective mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	color  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
// Styling is turned off when NO_COLOR is set.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	r := NewRendererWithTTY(out, errOut, tty, mode)
	r.color = tty && !termenv.EnvNoColor()
	return r
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY, color: isTTY, styles: DefaultStyles()}
}

// Mode returns the effective mode: auto resolves to text on a terminal
// and markdown otherwise.
func (r *Renderer) Mode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Out is the result writer.
func (r *Renderer) Out() io.Writer { return r.out }

// styled applies s only when writing text to a terminal.
func (r *Renderer) styled(s lipgloss.Style, text string) string {
	if r.Mode() != ModeText || !r.color {
		return text
	}
	return s.Render(text)
}

// Title prints a heading.
func (r *Renderer) Title(text string) {
	switch r.Mode() {
	case ModeJSON:
		return
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "## %s\n\n", text)
	default:
		_, _ = fmt.Fprintln(r.out, r.styled(r.styles.Title, text))
	}
}

// Line prints a plain line, skipped in JSON mode.
func (r *Renderer) Line(format string, args ...any) {
	if r.Mode() == ModeJSON {
		return
	}
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// Success prints a success message on the error stream.
func (r *Renderer) Success(format string, args ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.styled(r.styles.Success, fmt.Sprintf(format, args...)))
}

// Warning prints a warning on the error stream.
func (r *Renderer) Warning(format string, args ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.styled(r.styles.Warning, fmt.Sprintf(format, args...)))
}

// Risk returns label styled with the tier color.
func (r *Renderer) Risk(color, label string) string {
	s, ok := r.styles.Risk[color]
	if !ok {
		return label
	}
	return r.styled(s, label)
}

// Muted returns text in the muted style.
func (r *Renderer) Muted(text string) string {
	return r.styled(r.styles.Muted, text)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// Table renders rows under header, as a box table in text mode and a
// markdown table otherwise.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.Mode() == ModeText {
		t.SetStyle(table.StyleLight)
	}
	t.Style().Format.Header = text.FormatDefault

	if r.Mode() == ModeText {
		t.Render()
		return
	}
	t.RenderMarkdown()
	_, _ = fmt.Fprintln(r.out)
}

// Emit writes v as JSON in JSON mode and otherwise calls text.
func (r *Renderer) Emit(v any, text func()) error {
	if r.Mode() == ModeJSON {
		return r.JSON(v)
	}
	text()
	return nil
}

type rendererKey struct{}

// WithRenderer stores r in ctx.
func WithRenderer(ctx context.Context, r *Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// FromContext retrieves the renderer from the command context.
func FromContext(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	// Return default renderer if none in context
	return NewRenderer(os.Stdout, os.Stderr, ModeAuto)
}
