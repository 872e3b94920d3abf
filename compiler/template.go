package compiler

import (
	_ "embed"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/coderline/phase/errors"
)

// tokenPattern matches {name} and {name:modifier}
var tokenPattern = regexp.MustCompile(`\{([A-Za-z_]\w*)(?::([A-Za-z_]\w*))?\}`)

// ModifierRaw suppresses params packing and prefers folded constants
const ModifierRaw = "raw"

// Variable is a placeholder declared by a template
type Variable struct {
	Name     string
	Modifier string
}

// Token is the placeholder text of v
func (v Variable) Token() string {
	if v.Modifier == "" {
		return v.Name
	}
	return v.Name + ":" + v.Modifier
}

// Template is a parsed redirection template. It is immutable and may be shared by
// any number of concurrent renders; values are bound on a TemplateBinding.
type Template struct {
	Symbol    string
	Raw       string
	variables []Variable
}

// ParseTemplate parses raw for the API symbol it redirects
func ParseTemplate(symbol, raw string) (*Template, error) {
	if strings.Count(raw, "{") != strings.Count(raw, "}") {
		return nil, errors.Newf("template for %s: unbalanced braces in %q", symbol, raw)
	}
	t := &Template{Symbol: symbol, Raw: raw}
	seen := map[string]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(raw, -1) {
		v := Variable{Name: m[1], Modifier: m[2]}
		if seen[v.Token()] {
			continue
		}
		seen[v.Token()] = true
		t.variables = append(t.variables, v)
	}
	return t, nil
}

// Variables returns the declared placeholders in order of first appearance
func (t *Template) Variables() []Variable {
	return append([]Variable(nil), t.variables...)
}

// Uses reports whether the template refers to name under any modifier
func (t *Template) Uses(name string) bool {
	for _, v := range t.variables {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Bind starts a fresh binding for one call site
func (t *Template) Bind() *TemplateBinding {
	return &TemplateBinding{template: t, values: make(map[string]string, len(t.variables))}
}

// TemplateBinding holds the values of one call site's render
type TemplateBinding struct {
	template *Template
	values   map[string]string
}

// Set binds the placeholder name:modifier
func (b *TemplateBinding) Set(v Variable, value string) {
	b.values[v.Token()] = value
}

// Render substitutes every placeholder. A placeholder without a value is a
// template binding error.
func (b *TemplateBinding) Render() (string, error) {
	for _, v := range b.template.variables {
		if _, ok := b.values[v.Token()]; !ok {
			return "", templateBindingError(b.template.Symbol, v.Token())
		}
	}
	return tokenPattern.ReplaceAllStringFunc(b.template.Raw, func(tok string) string {
		return b.values[tok[1:len(tok)-1]]
	}), nil
}

//go:embed templates.yaml
var defaultTemplatesYAML []byte

type templateDoc struct {
	Templates []struct {
		Symbol   string            `yaml:"symbol"`
		Backends map[string]string `yaml:",inline"`
	} `yaml:"templates"`
}

// TemplateTable maps API symbols to per-backend templates. It is built once at
// startup and read-only afterwards.
type TemplateTable struct {
	entries map[string]map[string]*Template
}

// NewTemplateTable returns an empty table
func NewTemplateTable() *TemplateTable {
	return &TemplateTable{entries: map[string]map[string]*Template{}}
}

// ParseTemplateTable reads a YAML template document
func ParseTemplateTable(data []byte) (*TemplateTable, error) {
	var doc templateDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse template table")
	}
	table := NewTemplateTable()
	for _, e := range doc.Templates {
		if e.Symbol == "" {
			return nil, errors.New("template entry without symbol")
		}
		for backend, raw := range e.Backends {
			if err := table.Add(e.Symbol, backend, raw); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// LoadTemplateTable reads the default table and merges the file at path over it
func LoadTemplateTable(path string) (*TemplateTable, error) {
	table, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read template table %s", path)
	}
	extra, err := ParseTemplateTable(data)
	if err != nil {
		return nil, errors.Wrapf(err, "template table %s", path)
	}
	return table.Merge(extra), nil
}

var defaultTemplates = sync.OnceValues(func() (*TemplateTable, error) {
	return ParseTemplateTable(defaultTemplatesYAML)
})

// DefaultTemplates returns a copy of the embedded table
func DefaultTemplates() (*TemplateTable, error) {
	t, err := defaultTemplates()
	if err != nil {
		return nil, err
	}
	return NewTemplateTable().Merge(t), nil
}

// Add parses and registers one template
func (tt *TemplateTable) Add(symbol, backend, raw string) error {
	t, err := ParseTemplate(symbol, raw)
	if err != nil {
		return err
	}
	if tt.entries[symbol] == nil {
		tt.entries[symbol] = map[string]*Template{}
	}
	tt.entries[symbol][backend] = t
	return nil
}

// Merge copies the entries of other over tt and returns tt
func (tt *TemplateTable) Merge(other *TemplateTable) *TemplateTable {
	for sym, backends := range other.entries {
		if tt.entries[sym] == nil {
			tt.entries[sym] = map[string]*Template{}
		}
		for b, t := range backends {
			tt.entries[sym][b] = t
		}
	}
	return tt
}

// Lookup returns the template redirecting symbol on backend
func (tt *TemplateTable) Lookup(symbol, backend string) *Template {
	if tt == nil {
		return nil
	}
	return tt.entries[symbol][backend]
}

// Symbols lists the redirected symbols in order
func (tt *TemplateTable) Symbols() []string {
	out := make([]string, 0, len(tt.entries))
	for s := range tt.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
