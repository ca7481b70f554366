package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muurk/netdisco/internal/discovery"
)

// Printer writes UI components to a writer. Commands print all styled
// output through one.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, troubleshooting []string, details ...Param) {
	p.Println(NewWarningResult(title, troubleshooting, details...).SetWidth(p.width).Render())
}

// PrintError prints a failure box. Coordinator errors carry their own
// troubleshooting hints.
func (p *Printer) PrintError(title string, err error) {
	var tips []string
	var de *discovery.Error
	if errors.As(err, &de) {
		tips = HintLines(discovery.GetTroubleshootingHint(err))
	}
	p.Println(NewFailureResult(title, err, tips).SetWidth(p.width).Render())
}

// PrintReport writes a discovery report in the given format
func (p *Printer) PrintReport(r Report, format Format) error {
	return WriteReport(p.out, r, format, p.width)
}
