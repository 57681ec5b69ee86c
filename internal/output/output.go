// Package output formats the human-readable side of the CLI. Commands
// print verdict lines through a Writer so icons and indentation stay
// consistent, and switch to JSON through the same type when --json is
// set.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Icons shared by every command, so a verdict line looks the same no
// matter which command printed it.
const (
	iconSuccess = "✅"
	iconWarning = "⚠️ " // the glyph renders narrow; the space keeps columns aligned
	iconError   = "❌"
)

// Writer prints command output to a single destination.
type Writer struct {
	out io.Writer
}

// New creates a Writer printing to out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints one line prefixed with an icon. An empty icon indents
// the line to sit under an iconed one. Write errors on console output
// are ignored.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		icon = "  "
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with printf formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints msg behind a checkmark.
func (w *Writer) Success(msg string) {
	w.Status(iconSuccess, msg)
}

// Successf prints a formatted success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Status(iconSuccess, fmt.Sprintf(format, args...))
}

// Warning prints msg behind a warning sign.
func (w *Writer) Warning(msg string) {
	w.Status(iconWarning, msg)
}

// Warningf prints a formatted warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status(iconWarning, fmt.Sprintf(format, args...))
}

// Error prints msg behind a cross.
func (w *Writer) Error(msg string) {
	w.Status(iconError, msg)
}

// Errorf prints a formatted error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status(iconError, fmt.Sprintf(format, args...))
}

// JSON prints v as two-space indented JSON. Every command's --json
// path funnels through here.
func (w *Writer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, _ = fmt.Fprintln(w.out, string(data))
	return nil
}

// Code prints content as an indented block with a blank line on each
// side.
func (w *Writer) Code(content string) {
	w.Newline()
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	w.Newline()
}

// Newline prints a blank separator line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
