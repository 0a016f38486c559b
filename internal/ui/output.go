package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Printer writes styled text, or plain text when its writer is not a
// terminal.
type Printer struct {
	w     io.Writer
	plain bool
}

type fdWriter interface {
	Fd() uintptr
}

// NewPrinter detects whether w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	plain := true
	if f, ok := w.(fdWriter); ok {
		plain = !term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, plain: plain}
}

// NewPlainPrinter never styles its output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plain: true}
}

// Plain reports whether styling is off.
func (p *Printer) Plain() bool { return p.plain }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Style renders text with s unless the printer is plain.
func (p *Printer) Style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

// Header prints a boxed title and an optional subtitle.
func (p *Printer) Header(title, subtitle string) {
	if p.plain {
		fmt.Fprintln(p.w, title)
	} else {
		fmt.Fprintln(p.w, StyleHeader.Render(title))
	}
	if subtitle != "" {
		fmt.Fprintln(p.w, "  "+p.Style(StyleSubtle, subtitle))
	}
}

// Section prints a section title.
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.Style(StyleSectionTitle, title))
}

// Field prints one "key: value" line, skipping empty values.
func (p *Printer) Field(key string, value any) {
	s := fmt.Sprint(value)
	if s == "" || s == "[]" {
		return
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.Style(StyleSubtle, key+":"), s)
}

// Println writes a line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Printf writes formatted text.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Success prints a green check line.
func (p *Printer) Success(format string, a ...any) {
	fmt.Fprintln(p.w, p.Style(StyleSuccess, "✓ ")+fmt.Sprintf(format, a...))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, a ...any) {
	fmt.Fprintln(p.w, p.Style(StyleWarning, "! ")+fmt.Sprintf(format, a...))
}

// Table prints t.
func (p *Printer) Table(t *Table) {
	fmt.Fprint(p.w, t.Render(p.plain))
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
