package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Pretty writes human-facing command output. Colors are only used when w
// is a terminal.
type Pretty struct {
	w       io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	key     lipgloss.Style
	value   lipgloss.Style
	path    lipgloss.Style
}

// NewPretty returns a Pretty writing to w.
func NewPretty(w io.Writer) *Pretty {
	r := lipgloss.NewRenderer(w)
	return &Pretty{
		w:       w,
		success: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		key:     r.NewStyle().Foreground(lipgloss.Color("8")),
		value:   r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		path:    r.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
	}
}

// Success prints message with a check mark.
func (p *Pretty) Success(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.success.Render("✓"), p.success.Render(message))
}

// Warn prints message with a warning sign.
func (p *Pretty) Warn(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.warning.Render("⚠"), p.warning.Render(message))
}

// Field prints a key and its value.
func (p *Pretty) Field(key string, value interface{}) {
	fmt.Fprintf(p.w, "%s: %s\n", p.key.Render(key), p.value.Render(fmt.Sprint(value)))
}

// Path prints a labelled file path.
func (p *Pretty) Path(label, path string) {
	fmt.Fprintf(p.w, "%s: %s\n", p.key.Render(label), p.path.Render(path))
}
