package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderline/phase/errors"
)

func TestWriterIndentation(t *testing.T) {
	w := NewWriter("  ")
	w.WriteLine("class A {")
	w.Indent()
	w.Write("int x")
	w.Write(" = 1;")
	w.EndLine()
	w.BlankLine()
	w.WriteLines("void f() {\n  g();\n}")
	w.Outdent()
	w.WriteLine("}")

	assert.Equal(t, "class A {\n  int x = 1;\n\n  void f() {\n    g();\n  }\n}\n", w.String())
}

func TestWriterCapture(t *testing.T) {
	w := NewWriter("    ")
	w.Indent()
	w.Write("x = ")
	text, err := w.Capture(func() error {
		w.Write("f(")
		w.Write("1)")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "f(1)", text, "a capture continues the current line")
	assert.Equal(t, 1, w.Depth())

	w.Write(text + ";")
	assert.Equal(t, "    x = f(1);", w.String())
}

func TestWriterCaptureUnwindsOnError(t *testing.T) {
	w := NewWriter("")
	w.WriteLine("before")
	_, err := w.Capture(func() error {
		w.Write("discarded")
		_, _ = w.Capture(func() error {
			w.Write("nested")
			return nil
		})
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, w.Depth())
	w.WriteLine("after")
	assert.Equal(t, "before\nafter\n", w.String())
}

func TestWriterCaptureUnwindsOnPanic(t *testing.T) {
	w := NewWriter("")
	assert.Panics(t, func() {
		_, _ = w.Capture(func() error {
			w.Write("discarded")
			panic("boom")
		})
	})
	assert.Equal(t, 1, w.Depth())
	assert.Empty(t, w.String())
}

func TestCaptureInlineKeepsNestedIndent(t *testing.T) {
	ctx := &Context{Writer: NewWriter("  ")}
	ctx.Writer.Indent()
	text, err := ctx.CaptureInline(func() error {
		ctx.Writer.WriteLine("{")
		ctx.Writer.Indent()
		ctx.Writer.WriteLine("a;")
		ctx.Writer.Outdent()
		ctx.Writer.Write("}")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "{\n    a;\n  }", text)
}
