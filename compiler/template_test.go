package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderline/phase/errors"
)

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("System.Math.Max", "Math.max({a}, {b}) + {a} + {args:raw}")
	require.NoError(t, err)
	assert.Equal(t, []Variable{{Name: "a"}, {Name: "b"}, {Name: "args", Modifier: ModifierRaw}}, tmpl.Variables())
	assert.True(t, tmpl.Uses("args"))
	assert.False(t, tmpl.Uses("this"))

	_, err = ParseTemplate("X", "f({a)")
	assert.Error(t, err)
}

func TestTemplateBindingIsPerCallSite(t *testing.T) {
	tmpl, err := ParseTemplate("System.Math.Max", "max({a}, {b})")
	require.NoError(t, err)

	first := tmpl.Bind()
	first.Set(Variable{Name: "a"}, "x")
	first.Set(Variable{Name: "b"}, "y")
	second := tmpl.Bind()
	second.Set(Variable{Name: "a"}, "1")
	second.Set(Variable{Name: "b"}, "2")

	text, err := first.Render()
	require.NoError(t, err)
	assert.Equal(t, "max(x, y)", text)
	text, err = second.Render()
	require.NoError(t, err)
	assert.Equal(t, "max(1, 2)", text)
}

func TestTemplateBindingMissingValue(t *testing.T) {
	tmpl, err := ParseTemplate("System.Console.WriteLine", "print({value})")
	require.NoError(t, err)
	_, err = tmpl.Bind().Render()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTemplateBinding))
	assert.Equal(t, DiagTemplateBinding, DiagnosticOf(err, Position{}).Kind)
}

func TestTemplateKeepsLiteralBraces(t *testing.T) {
	tmpl, err := ParseTemplate("System.Console.WriteLine", `println!("{}", {value})`)
	require.NoError(t, err)
	b := tmpl.Bind()
	b.Set(Variable{Name: "value"}, "x")
	text, err := b.Render()
	require.NoError(t, err)
	assert.Equal(t, `println!("{}", x)`, text)
}

func TestTemplateTableMerge(t *testing.T) {
	base, err := DefaultTemplates()
	require.NoError(t, err)
	extra, err := ParseTemplateTable([]byte(`
templates:
  - symbol: System.Math.Max
    java: "Math.maxExact({a}, {b})"
  - symbol: Acme.Clock.Now
    csharp: "System.DateTime.Now"
`))
	require.NoError(t, err)

	merged := base.Merge(extra)
	assert.Equal(t, "Math.maxExact({a}, {b})", merged.Lookup("System.Math.Max", "java").Raw)
	assert.Equal(t, "std::max({a}, {b})", merged.Lookup("System.Math.Max", "cpp").Raw)
	assert.NotNil(t, merged.Lookup("Acme.Clock.Now", "csharp"))
	assert.Nil(t, merged.Lookup("Acme.Clock.Now", "rust"))

	again, err := DefaultTemplates()
	require.NoError(t, err)
	assert.Equal(t, "Math.max({a}, {b})", again.Lookup("System.Math.Max", "java").Raw, "defaults are copied, not shared")
}

// Every default redirection names each backend, except constructors that only the
// ownership-managed backends cannot spell natively.
func TestDefaultTemplatesComplete(t *testing.T) {
	table, err := DefaultTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, table.Symbols())
	for _, sym := range table.Symbols() {
		if sym == "System.Collections.Generic.List`1..ctor" {
			assert.NotNil(t, table.Lookup(sym, "rust"))
			continue
		}
		for _, b := range Backends() {
			assert.NotNil(t, table.Lookup(sym, b), "%s has no %s template", sym, b)
		}
	}
}
