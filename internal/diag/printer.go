package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes diagnostics one per line.
type Printer struct {
	w    io.Writer
	warn *color.Color
	fail *color.Color
}

// NewPrinter creates a printer writing to w. When useColor is false the
// output is plain text regardless of the terminal.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:    w,
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
	}
	if useColor {
		p.warn.EnableColor()
		p.fail.EnableColor()
	} else {
		p.warn.DisableColor()
		p.fail.DisableColor()
	}
	return p
}

// Print writes a single diagnostic.
func (p *Printer) Print(d Diagnostic) error {
	c := p.warn
	if d.Severity() == SeverityError {
		c = p.fail
	}
	_, err := fmt.Fprintln(p.w, c.Sprint(d.String()))
	return err
}

// PrintAll writes every diagnostic in order.
func (p *Printer) PrintAll(diags []Diagnostic) error {
	for _, d := range diags {
		if err := p.Print(d); err != nil {
			return err
		}
	}
	return nil
}
