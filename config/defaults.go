package config

import "github.com/spf13/viper"

// FileName is the project configuration file searched for from the working directory up
const FileName = "phase.toml"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.bundle", "")
	v.SetDefault("backends", []string{"cpp", "csharp", "java", "rust", "typescript"})
	v.SetDefault("workers", 0) // one per CPU
	v.SetDefault("templates.file", "")
	v.SetDefault("runtime.link", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}
