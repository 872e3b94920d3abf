package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Empty(t, cfg.Output.Bundle)
	assert.Equal(t, []string{"cpp", "csharp", "java", "rust", "typescript"}, cfg.Backends)
	assert.Equal(t, 0, cfg.Workers)
	assert.Positive(t, cfg.WorkerCount())
	assert.False(t, cfg.Runtime.Link)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
backends = ["rust"]
workers = 3

[output]
bundle = "all.txtar"

[templates]
file = "extra.yaml"

[log]
verbosity = 2
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, cfg.Backends)
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.Equal(t, "all.txtar", cfg.Output.Bundle)
	assert.Equal(t, "out", cfg.Output.Dir, "unset keys keep their defaults")
	assert.Equal(t, "extra.yaml", cfg.Templates.File)
	assert.Equal(t, 2, cfg.Log.Verbosity)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("workers = 3\n"), 0644))
	t.Setenv("PHASE_WORKERS", "7")
	t.Setenv("PHASE_OUTPUT_DIR", "generated")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "generated", cfg.Output.Dir)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("workers = 2\n"), 0644))
	t.Chdir(nested)

	found := FindProjectConfig()
	require.NotEmpty(t, found)
	assert.Equal(t, FileName, filepath.Base(found))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "directory output", config: Config{Output: OutputConfig{Dir: "out"}}},
		{name: "bundle output", config: Config{Output: OutputConfig{Bundle: "out.txtar"}}},
		{name: "no output", config: Config{}, wantErr: true},
		{name: "negative workers", config: Config{Workers: -1, Output: OutputConfig{Dir: "out"}}, wantErr: true},
		{name: "negative verbosity", config: Config{Log: LogConfig{Verbosity: -1}, Output: OutputConfig{Dir: "out"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
