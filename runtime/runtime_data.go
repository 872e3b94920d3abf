// Package runtime holds the support sources generated code links against. Only the
// ownership-managed backends need one; the garbage-collected targets use their
// standard libraries.
package runtime

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"

	"github.com/coderline/phase/errors"
)

//go:embed cpp/phase/runtime.h
var CppRuntimeSource string

//go:embed rust/phase.rs
var RustRuntimeSource string

// File is one support source, Path is relative to the output root
type File struct {
	Path    string
	Content string
}

var files = map[string][]File{
	"cpp":  {{Path: "phase/runtime.h", Content: CppRuntimeSource}},
	"rust": {{Path: "phase.rs", Content: RustRuntimeSource}},
}

// Files returns the support sources of backend, none for backends without a runtime
func Files(backend string) []File {
	return files[backend]
}

// Backends lists the backends that ship a runtime
func Backends() []string {
	out := make([]string, 0, len(files))
	for b := range files {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Write copies the support sources of backend under dir and returns the written paths
func Write(backend, dir string) ([]string, error) {
	var written []string
	for _, f := range Files(backend) {
		p := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return written, errors.Wrapf(err, "failed to create directory for %s", p)
		}
		if err := os.WriteFile(p, []byte(f.Content), 0644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", p)
		}
		written = append(written, p)
	}
	return written, nil
}
