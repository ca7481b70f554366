package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one key/value line in a header or result box. Params keep the
// order they were given in.
type Param struct {
	Key   string
	Value string
}

// Header is a command banner with title, command, and parameters
type Header struct {
	Title   string  // e.g., "Network Discovery"
	Command string  // e.g., "netdisco scan --window 4s"
	Params  []Param // e.g., {"Window", "4s"}, {"Types", "all"}
	Width   int
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	sections := []string{titleLine}
	if h.Command != "" {
		sections = append(sections, HeaderCommandStyle.Render(h.Command))
	}

	if len(h.Params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		sections = append(sections, RenderHorizontalDivider(dividerWidth))
		sections = append(sections, renderParams(h.Params, HeaderParamKeyStyle, HeaderParamValueStyle))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

func renderParams(params []Param, keyStyle, valueStyle lipgloss.Style) string {
	lines := make([]string, 0, len(params))
	for _, p := range params {
		lines = append(lines, keyStyle.Render(p.Key+":")+" "+valueStyle.Render(p.Value))
	}
	return strings.Join(lines, "\n")
}
