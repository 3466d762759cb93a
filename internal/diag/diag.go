// Package diag implements the spanned diagnostics sink shared by every stage
// of the compiler. The core stages never print directly; they report here and
// the driver decides what to do with the accumulated state.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Severity classifies a diagnostic message.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		panic("BUG: unrecognized severity")
	}
}

// fatalAbort is the sentinel recovered by the driver when Fatal fires.
type fatalAbort struct{ msg string }

// IsFatal reports whether a recovered panic value originated from
// Diagnostics.Fatal, and returns the rendered message if so.
func IsFatal(v any) (string, bool) {
	f, ok := v.(fatalAbort)
	if !ok {
		return "", false
	}
	return f.msg, true
}

// Diagnostics accumulates spanned messages for one compilation. Fatal
// messages abort the compilation by panicking with a sentinel the driver
// recovers; everything else accumulates, and the driver refuses to emit
// output when any error was recorded.
type Diagnostics struct {
	out    io.Writer
	color  bool
	errors int

	// readFile fetches source text for snippet rendering. Overridable so
	// tests do not need files on disk.
	readFile func(path string) ([]byte, error)
}

// New returns a Diagnostics writing rendered messages to out. Colors are
// enabled only when out is a terminal.
func New(out io.Writer) *Diagnostics {
	enable := false
	if f, ok := out.(*os.File); ok {
		enable = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Diagnostics{out: out, color: enable, readFile: os.ReadFile}
}

// SetReadFile overrides the source fetcher used for snippet rendering.
func (d *Diagnostics) SetReadFile(fn func(path string) ([]byte, error)) {
	d.readFile = fn
}

// ErrorCount returns the number of Error-severity messages recorded so far.
func (d *Diagnostics) ErrorCount() int { return d.errors }

// Info logs an informative message.
func (d *Diagnostics) Info(msg string, span SourceSpan) {
	d.log(SeverityInfo, msg, span)
}

// Warn logs a warning.
func (d *Diagnostics) Warn(msg string, span SourceSpan) {
	d.log(SeverityWarning, msg, span)
}

// Error records a non-fatal error. Compilation continues, but the driver
// must not emit output afterwards.
func (d *Diagnostics) Error(msg string, span SourceSpan) {
	d.errors++
	d.log(SeverityError, msg, span)
}

// Fatal records the message and aborts the compilation.
func (d *Diagnostics) Fatal(msg string, span SourceSpan) {
	d.log(SeverityFatal, msg, span)
	panic(fatalAbort{msg: msg})
}

func (d *Diagnostics) log(sev Severity, msg string, span SourceSpan) {
	header := sev.String() + ":"
	if d.color {
		c := color.New(color.Bold)
		switch sev {
		case SeverityInfo:
			c = c.Add(color.FgMagenta)
		case SeverityWarning:
			c = c.Add(color.FgYellow)
		case SeverityError, SeverityFatal:
			c = c.Add(color.FgRed)
		}
		header = c.Sprint(header)
	}

	fmt.Fprintf(d.out, "stmc: %s %s\n", header, msg)
	if span.Start.Path != "" {
		d.logSource(span)
	}
}

// logSource renders the lines covered by span with a gutter, the way the
// original front end annotates its errors.
func (d *Diagnostics) logSource(span SourceSpan) {
	src, err := d.readFile(span.Start.Path)
	if err != nil {
		return
	}

	lines := snippet(string(src), span)
	gutter := len(fmt.Sprint(span.End.Line))

	fmt.Fprintf(d.out, "%s┌─[%s:%d]\n",
		strings.Repeat(" ", gutter+2), span.Start.Path, span.Start.Line)

	n := span.Start.Line
	for _, line := range lines {
		num := fmt.Sprint(n)
		if d.color {
			num = color.New(color.Faint).Sprint(num)
		}
		fmt.Fprintf(d.out, "%s%s│ %s\n",
			num, strings.Repeat(" ", gutter+2-len(fmt.Sprint(n))), line)
		n++
	}

	fmt.Fprintf(d.out, "%s╰──\n", strings.Repeat(" ", gutter+2))
}

// snippet extracts the source lines covered by span.
func snippet(src string, span SourceSpan) []string {
	var lines []string
	line := uint32(1)
	start := 0
	for idx := 0; idx <= len(src); idx++ {
		if idx == len(src) || src[idx] == '\n' {
			if line >= span.Start.Line && line <= span.End.Line {
				lines = append(lines, src[start:idx])
			}
			start = idx + 1
			line++
		}
	}
	return lines
}
