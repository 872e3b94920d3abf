package compiler

import (
	"strings"

	"github.com/coderline/phase/errors"
)

// buffer is one level of the writer stack
type buffer struct {
	sb          strings.Builder
	level       int
	atLineStart bool
}

// Writer is a per-unit stack of text buffers. The bottom buffer collects the unit's
// final text; nested buffers exist only inside Capture.
type Writer struct {
	stack      []*buffer
	indentUnit string
}

// NewWriter creates a writer with an empty root buffer
func NewWriter(indentUnit string) *Writer {
	if indentUnit == "" {
		indentUnit = "    "
	}
	return &Writer{
		stack:      []*buffer{{atLineStart: true}},
		indentUnit: indentUnit,
	}
}

func (w *Writer) top() *buffer {
	return w.stack[len(w.stack)-1]
}

// push opens a buffer that continues the current line at the current indentation
func (w *Writer) push() {
	parent := w.top()
	w.stack = append(w.stack, &buffer{level: parent.level, atLineStart: parent.atLineStart})
}

func (w *Writer) pop() string {
	if len(w.stack) == 1 {
		panic(errors.AssertionFailedf("writer: pop of root buffer"))
	}
	b := w.top()
	w.stack = w.stack[:len(w.stack)-1]
	return b.sb.String()
}

// unwind discards every buffer above depth
func (w *Writer) unwind(depth int) {
	if len(w.stack) > depth {
		w.stack = w.stack[:depth]
	}
}

// Capture runs fn against a fresh buffer and returns what fn wrote. The buffer is
// removed on every exit path, so the enclosing buffer is current again when Capture
// returns, whether fn succeeded, failed or panicked.
func (w *Writer) Capture(fn func() error) (string, error) {
	depth := len(w.stack)
	w.push()
	defer w.unwind(depth)
	if err := fn(); err != nil {
		return "", err
	}
	if len(w.stack) != depth+1 {
		return "", errors.AssertionFailedf("writer: unbalanced capture, depth %d want %d", len(w.stack), depth+1)
	}
	return w.pop(), nil
}

// Depth is the number of open buffers, the root included
func (w *Writer) Depth() int {
	return len(w.stack)
}

// Write appends s to the current buffer, indenting it if it starts a line
func (w *Writer) Write(s string) {
	if s == "" {
		return
	}
	b := w.top()
	if b.atLineStart && s[0] != '\n' {
		b.sb.WriteString(strings.Repeat(w.indentUnit, b.level))
	}
	b.sb.WriteString(s)
	b.atLineStart = s[len(s)-1] == '\n'
}

// WriteRaw appends s exactly as given, for text that was captured already indented
func (w *Writer) WriteRaw(s string) {
	if s == "" {
		return
	}
	b := w.top()
	b.sb.WriteString(s)
	b.atLineStart = s[len(s)-1] == '\n'
}

// WriteLine appends s and a line break
func (w *Writer) WriteLine(s string) {
	w.Write(s)
	b := w.top()
	b.sb.WriteString("\n")
	b.atLineStart = true
}

// WriteLines writes every line of a multi-line text at the current indentation
func (w *Writer) WriteLines(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			w.BlankLine()
			continue
		}
		w.WriteLine(line)
	}
}

// EndLine terminates the current line unless it is empty
func (w *Writer) EndLine() {
	if b := w.top(); !b.atLineStart {
		b.sb.WriteString("\n")
		b.atLineStart = true
	}
}

// BlankLine writes an empty line without trailing indentation
func (w *Writer) BlankLine() {
	b := w.top()
	if !b.atLineStart {
		b.sb.WriteString("\n")
	}
	b.sb.WriteString("\n")
	b.atLineStart = true
}

// Indent increases the indentation of following lines
func (w *Writer) Indent() {
	w.top().level++
}

// Outdent decreases the indentation of following lines
func (w *Writer) Outdent() {
	if b := w.top(); b.level > 0 {
		b.level--
	}
}

// Level is the current indentation level
func (w *Writer) Level() int {
	return w.top().level
}

// IndentString renders n levels of indentation
func (w *Writer) IndentString(n int) string {
	return strings.Repeat(w.indentUnit, n)
}

// String returns the root buffer's text; only valid with no capture open
func (w *Writer) String() string {
	return w.stack[0].sb.String()
}
