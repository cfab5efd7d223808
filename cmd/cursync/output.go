package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss/v2"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// printer writes status lines for humans. Styling is dropped when NO_COLOR
// is set.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	return printer{w: w, color: !noColor}
}

func (p printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(successStyle, "✓ "+fmt.Sprintf(format, args...)))
}

func (p printer) fail(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(errorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

func (p printer) warning(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(warningStyle, "⚠ "+fmt.Sprintf(format, args...)))
}

func (p printer) step(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(stepStyle, "→ "+fmt.Sprintf(format, args...)))
}

func (p printer) status(label string, format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.render(labelStyle, label+":"), fmt.Sprintf(format, args...))
}

func (p printer) dim(text string) string {
	return p.render(dimStyle, text)
}
