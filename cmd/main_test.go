package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

const pointCompilation = `
types:
  - kind: class
    name: Geometry.Point
    members:
      - {kind: field, name: X, type: int, access: public}
      - {kind: field, name: Y, type: int, access: public}
      - kind: constructor
        access: public
        parameters: [{name: x, type: int}, {name: y, type: int}]
        body:
          - {kind: assign, left: {kind: member, target: {kind: this}, name: X}, right: {kind: identifier, name: x}}
          - {kind: assign, left: {kind: member, target: {kind: this}, name: Y}, right: {kind: identifier, name: y}}
      - kind: method
        name: Sum
        returns: int
        access: public
        body:
          - kind: return
            value: {kind: binary, op: "+", left: {kind: identifier, name: X}, right: {kind: identifier, name: Y}}
`

const yieldCompilation = `
types:
  - kind: class
    name: Numbers
    members:
      - kind: method
        name: Values
        returns: IEnumerable<int>
        access: public
        body:
          - {kind: yield, value: 1}
`

func writeCompilation(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compilation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func filesUnder(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return files
}

func TestTranslate(t *testing.T) {
	path := writeCompilation(t, pointCompilation)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "translate", path, "-o", outDir, "-b", "csharp,cpp", "-j", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Geometry.Point")
	assert.Contains(t, out, "0 failed")

	files := filesUnder(t, outDir)
	var backends []string
	for name, text := range files {
		backends = append(backends, strings.SplitN(name, "/", 2)[0])
		assert.Contains(t, text, "Point", name)
	}
	assert.ElementsMatch(t, []string{"cpp", "cpp", "csharp"}, backends, "cpp splits header and implementation")
}

func TestTranslate_LinkRuntime(t *testing.T) {
	path := writeCompilation(t, pointCompilation)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "translate", path, "-o", outDir, "-b", "rust", "--link-runtime")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "rust", "phase.rs"))
}

func TestTranslate_Bundle(t *testing.T) {
	path := writeCompilation(t, pointCompilation)
	bundle := filepath.Join(t.TempDir(), "all.txtar")

	_, err := execute(t, "translate", path, "--bundle", bundle, "-b", "java,typescript")
	require.NoError(t, err)

	ar, err := txtar.ParseFile(bundle)
	require.NoError(t, err)
	require.Len(t, ar.Files, 2)
	assert.True(t, strings.HasPrefix(ar.Files[0].Name, "java/"), ar.Files[0].Name)
	assert.True(t, strings.HasPrefix(ar.Files[1].Name, "typescript/"), ar.Files[1].Name)
}

func TestCheck_ReportsUnsupported(t *testing.T) {
	path := writeCompilation(t, yieldCompilation)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "check", path, "-o", outDir, "-b", "csharp,java")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 units failed")
	assert.Contains(t, out, "unsupported")
	assert.NoDirExists(t, outDir, "check writes nothing")
}

func TestTranslate_UnknownBackend(t *testing.T) {
	path := writeCompilation(t, pointCompilation)
	_, err := execute(t, "translate", path, "-b", "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestRuntimeCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "runtime", "cpp", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "runtime.h")
	assert.FileExists(t, filepath.Join(dir, "phase", "runtime.h"))

	_, err = execute(t, "runtime", "java", dir)
	assert.Error(t, err)
}

func TestWatch_Debounces(t *testing.T) {
	path := writeCompilation(t, pointCompilation)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, []string{path}, 50*time.Millisecond, func() { calls.Add(1) })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(pointCompilation), 0644))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes triggers one run")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
