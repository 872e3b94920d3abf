// Package config loads the translator's settings from phase.toml and PHASE_*
// environment variables.
package config

import (
	"runtime"

	"github.com/coderline/phase/errors"
)

// Config is the complete configuration of a translation run
type Config struct {
	Output    OutputConfig    `mapstructure:"output"`
	Backends  []string        `mapstructure:"backends"`
	Workers   int             `mapstructure:"workers"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Log       LogConfig       `mapstructure:"log"`
}

// OutputConfig selects where artifacts go
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
	// Bundle, when set, writes every artifact into one txtar archive instead of a tree
	Bundle string `mapstructure:"bundle"`
}

// TemplatesConfig names a template table merged over the embedded defaults
type TemplatesConfig struct {
	File string `mapstructure:"file"`
}

// RuntimeConfig controls the support sources written next to the artifacts
type RuntimeConfig struct {
	Link bool `mapstructure:"link"`
}

// LogConfig controls the logger
type LogConfig struct {
	JSON      bool `mapstructure:"json"`
	Verbosity int  `mapstructure:"verbosity"`
}

// WorkerCount is the configured number of workers, the CPU count when unset
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.Newf("workers must not be negative, got %d", c.Workers)
	}
	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	if c.Output.Dir == "" && c.Output.Bundle == "" {
		return errors.WithHint(errors.New("no output configured"), "set output.dir or output.bundle")
	}
	return nil
}
