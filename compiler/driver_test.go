package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/coderline/phase/errors"
)

const mixedDoc = `
types:
  - kind: class
    name: Geometry.Point
    members:
      - {kind: field, name: X, type: int, access: public}
      - kind: method
        name: Twice
        returns: int
        access: public
        body:
          - kind: return
            value: {kind: binary, op: "*", left: {kind: identifier, name: X}, right: 2}
  - kind: class
    name: Geometry.Numbers
    members:
      - kind: method
        name: Values
        returns: IEnumerable<int>
        access: public
        body:
          - {kind: yield, value: 1}
  - kind: class
    name: Geometry.Legacy
    members:
      - kind: method
        name: Call
        access: public
        body:
          - {kind: invocation, target: {kind: identifier, name: Unknown}, args: [1]}
`

func loadMixed(t *testing.T) *Compilation {
	t.Helper()
	comp, err := ParseCompilation([]byte(mixedDoc), "mixed.yaml")
	require.NoError(t, err)
	return comp
}

func unitOf(r *Report, backend, typ string) *Unit {
	for _, u := range r.Units {
		if u.Backend == backend && u.Type == typ {
			return u
		}
	}
	return nil
}

func TestNewDriver(t *testing.T) {
	d, err := NewDriver(Options{})
	require.NoError(t, err)
	assert.Equal(t, Backends(), d.opts.Backends)
	assert.Equal(t, 1, d.opts.Workers)
	assert.NotNil(t, d.opts.Templates)

	_, err = NewDriver(Options{Backends: []string{"cobol"}})
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "available backends")
}

func TestRunIsolatesFailures(t *testing.T) {
	comp := loadMixed(t)
	d, err := NewDriver(Options{Backends: []string{"java", "csharp"}, Workers: 4})
	require.NoError(t, err)

	report, err := d.Run(context.Background(), comp)
	require.Error(t, err)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Units, 6)

	assert.Equal(t, "csharp", report.Units[0].Backend, "units are ordered by backend then type")
	assert.Equal(t, "Geometry.Legacy", report.Units[0].Type)

	failed := unitOf(report, "java", "Geometry.Numbers")
	require.NotNil(t, failed)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Empty(t, failed.Outputs)
	require.NotEmpty(t, failed.Diagnostics)
	assert.Equal(t, DiagUnsupported, failed.Diagnostics[len(failed.Diagnostics)-1].Kind)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedConstruct))

	assert.Equal(t, StatusOK, unitOf(report, "csharp", "Geometry.Numbers").Status)
	assert.Equal(t, StatusOK, unitOf(report, "java", "Geometry.Point").Status)

	legacy := unitOf(report, "java", "Geometry.Legacy")
	assert.Equal(t, StatusFallback, legacy.Status)
	require.NotEmpty(t, legacy.Diagnostics)
	assert.Equal(t, DiagUnresolvedSymbol, legacy.Diagnostics[0].Kind)
	assert.NotEmpty(t, legacy.Outputs)

	assert.Equal(t, 1, report.Count(StatusFailed))
	assert.Equal(t, 2, report.Count(StatusFallback))
	assert.Equal(t, 3, report.Count(StatusOK))
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	comp := loadMixed(t)
	var bundles [][]byte
	for _, workers := range []int{1, 3, 8} {
		d, err := NewDriver(Options{Workers: workers})
		require.NoError(t, err)
		report, _ := d.Run(context.Background(), comp)
		bundles = append(bundles, Bundle(report.Outputs()))
	}
	assert.Equal(t, string(bundles[0]), string(bundles[1]))
	assert.Equal(t, string(bundles[0]), string(bundles[2]))
}

func TestRunCheckKeepsNoOutputs(t *testing.T) {
	comp := loadMixed(t)
	d, err := NewDriver(Options{Backends: []string{"csharp"}, Check: true})
	require.NoError(t, err)
	report, err := d.Run(context.Background(), comp)
	require.NoError(t, err)
	assert.Empty(t, report.Outputs())
	assert.Equal(t, 1, report.Count(StatusFallback))
}

func TestRunCancelled(t *testing.T) {
	comp := loadMixed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewDriver(Options{Backends: []string{"typescript"}})
	require.NoError(t, err)
	report, err := d.Run(ctx, comp)
	require.ErrorIs(t, err, context.Canceled)
	for _, u := range report.Units {
		assert.Equal(t, StatusFailed, u.Status)
	}
}

func TestBundleAndWriteOutputs(t *testing.T) {
	outputs := []Output{
		{Backend: "java", Path: "geometry/Point.java", Text: "class Point {}\n"},
		{Backend: "cpp", Path: "Geometry/Point.h", Text: "#pragma once\n"},
	}

	ar := txtar.Parse(Bundle(outputs))
	require.Len(t, ar.Files, 2)
	assert.Equal(t, "java/geometry/Point.java", ar.Files[0].Name)
	assert.Equal(t, "class Point {}\n", string(ar.Files[0].Data))

	dir := t.TempDir()
	require.NoError(t, WriteOutputs(dir, outputs))
	data, err := os.ReadFile(filepath.Join(dir, "cpp", "Geometry", "Point.h"))
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n", string(data))
}

const siblingsDoc = `
types:
  - kind: class
    name: P.Box
    members:
      - {kind: field, name: Width, type: int, access: public}
  - kind: class
    name: P.Box
    typeParameters: [T]
    members:
      - {kind: field, name: Value, type: T, access: public}
  - kind: class
    name: P.Widget
    rename: Q.Gadget
`

func TestArtifactPathsAreUnique(t *testing.T) {
	comp, err := ParseCompilation([]byte(siblingsDoc), "siblings.yaml")
	require.NoError(t, err)
	d, err := NewDriver(Options{Backends: []string{"cpp", "csharp", "java", "typescript"}, Workers: 2})
	require.NoError(t, err)
	report, err := d.Run(context.Background(), comp)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, o := range report.Outputs() {
		key := o.Backend + "/" + o.Path
		assert.False(t, seen[key], "%s is written twice", key)
		seen[key] = true
	}

	for _, want := range []string{
		"csharp/P/Box.cs", "csharp/P/Box1.cs", "csharp/Q/Gadget.cs",
		"java/p/Box.java", "java/p/Box1.java", "java/q/Gadget.java",
		"typescript/P/Box.ts", "typescript/P/Box1.ts", "typescript/Q/Gadget.ts",
		"cpp/P/Box.h", "cpp/P/Box1.h", "cpp/Q/Gadget.h",
	} {
		assert.True(t, seen[want], "missing %s", want)
	}

	for _, o := range report.Outputs() {
		if o.Backend == "java" && o.Path == "p/Box1.java" {
			assert.Contains(t, o.Text, "class Box1<T>")
		}
	}
}

type panickingRenderer struct {
	Renderer
}

func (panickingRenderer) EmitArtifact(*Context) error {
	panic("boom")
}

func TestRunRecoversRendererPanic(t *testing.T) {
	renderers["broken"] = func() Renderer { return panickingRenderer{NewJavaEmitter()} }
	t.Cleanup(func() { delete(renderers, "broken") })

	comp := loadMixed(t)
	d, err := NewDriver(Options{Backends: []string{"broken", "csharp"}, Workers: 2})
	require.NoError(t, err)
	report, err := d.Run(context.Background(), comp)
	require.Error(t, err)

	broken := unitOf(report, "broken", "Geometry.Point")
	require.NotNil(t, broken)
	assert.Equal(t, StatusFailed, broken.Status)
	assert.True(t, errors.IsAssertionFailure(broken.Err))
	assert.Contains(t, broken.Err.Error(), "boom")
	assert.Equal(t, StatusOK, unitOf(report, "csharp", "Geometry.Point").Status)
}
