package compiler

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/coderline/phase/errors"
)

// Each archive under testdata/scenarios holds a compilation.yaml plus, per backend,
// either <backend>.want (fragments the emitted text must contain, one per line) or
// <backend>.fail (a fragment of the unsupported-construct error).
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	templates, err := DefaultTemplates()
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)
			files := map[string]string{}
			for _, f := range ar.Files {
				files[f.Name] = string(f.Data)
			}
			comp, err := ParseCompilation([]byte(files["compilation.yaml"]), "compilation.yaml")
			require.NoError(t, err)

			for _, backend := range Backends() {
				want, hasWant := files[backend+".want"]
				fail, hasFail := files[backend+".fail"]
				if !hasWant && !hasFail {
					continue
				}
				t.Run(backend, func(t *testing.T) {
					text, err := renderAll(comp, backend, templates)
					if hasFail {
						require.Error(t, err)
						assert.True(t, errors.Is(err, errors.ErrUnsupportedConstruct), err.Error())
						assert.Contains(t, err.Error(), strings.TrimSpace(fail))
						return
					}
					require.NoError(t, err)
					for _, line := range strings.Split(strings.TrimSpace(want), "\n") {
						assert.Contains(t, text, strings.TrimSpace(line))
					}

					again, err := renderAll(comp, backend, templates)
					require.NoError(t, err)
					assert.Equal(t, text, again, "emission is deterministic")
				})
			}
		})
	}
}

func renderAll(comp *Compilation, backend string, templates *TemplateTable) (string, error) {
	var sb strings.Builder
	for _, decl := range comp.Types {
		r, err := NewRenderer(backend)
		if err != nil {
			return "", err
		}
		outputs, _, err := RenderUnit(comp, r, templates, decl, false)
		if err != nil {
			return "", err
		}
		for _, o := range outputs {
			sb.WriteString(o.Text)
		}
	}
	return sb.String(), nil
}
