package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	assert.Equal(t, []string{"cpp", "rust"}, Backends())
	assert.Empty(t, Files("java"))

	cpp := Files("cpp")
	require.Len(t, cpp, 1)
	for _, helper := range []string{"class Object", "box(", "unbox(", "print_line(", "Message()"} {
		assert.Contains(t, cpp[0].Content, helper)
	}

	rust := Files("rust")
	require.Len(t, rust, 1)
	for _, helper := range []string{"pub fn boxed", "pub fn unboxed", "pub fn char_str", "pub fn throw", "pub fn message"} {
		assert.Contains(t, rust[0].Content, helper)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	written, err := Write("cpp", dir)
	require.NoError(t, err)
	require.Len(t, written, 1)

	data, err := os.ReadFile(filepath.Join(dir, "phase", "runtime.h"))
	require.NoError(t, err)
	assert.Equal(t, CppRuntimeSource, string(data))

	written, err = Write("typescript", dir)
	require.NoError(t, err)
	assert.Empty(t, written)
}
