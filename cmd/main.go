package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coderline/phase/config"
	"github.com/coderline/phase/errors"
	"github.com/coderline/phase/logger"
)

// options are the global flags; zero values leave the configuration untouched
type options struct {
	configFile  string
	outputDir   string
	bundle      string
	backends    []string
	workers     int
	templates   string
	linkRuntime bool
	jsonLog     bool
	verbosity   int

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "phase",
		Short: "phase - translate typed compilations to C++, C#, Java, TypeScript and Rust",
		Long: `phase emits one source unit per declared type for every selected backend.

Input is a compilation document (YAML) holding the declared types, their member
bodies and the external types they reference. Settings come from the nearest
phase.toml, PHASE_* environment variables and the flags below, in increasing
precedence.

Examples:
  phase translate app.yaml -o out            # all backends into out/<backend>/
  phase translate app.yaml -b rust,cpp       # selected backends
  phase translate app.yaml --bundle app.txtar
  phase check app.yaml -b java               # report unsupported constructs only
  phase watch app.yaml                       # re-translate on change
  phase runtime cpp out/cpp                  # write the C++ support header`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Cleanup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Configuration file (default: nearest phase.toml)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Output directory")
	flags.StringVar(&opts.bundle, "bundle", "", "Write all artifacts into one txtar archive")
	flags.StringSliceVarP(&opts.backends, "backend", "b", nil, "Backends to emit (comma-separated)")
	flags.IntVarP(&opts.workers, "workers", "j", 0, "Units emitted concurrently (default: one per CPU)")
	flags.StringVar(&opts.templates, "templates", "", "Template table merged over the defaults")
	flags.BoolVar(&opts.linkRuntime, "link-runtime", false, "Write the runtime support sources next to the artifacts")
	flags.BoolVar(&opts.jsonLog, "json", false, "Log as JSON")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	root.AddCommand(newTranslateCmd(opts), newCheckCmd(opts), newWatchCmd(opts), newRuntimeCmd())
	return root
}

// load reads the configuration, applies the flags set on cmd and initializes the
// logger
func (o *options) load(cmd *cobra.Command) error {
	var cfg *config.Config
	var err error
	if o.configFile != "" {
		cfg, err = config.LoadFromFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = o.outputDir
	}
	if flags.Changed("bundle") {
		cfg.Output.Bundle = o.bundle
	}
	if flags.Changed("backend") {
		cfg.Backends = o.backends
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("templates") {
		cfg.Templates.File = o.templates
	}
	if flags.Changed("link-runtime") {
		cfg.Runtime.Link = o.linkRuntime
	}
	if flags.Changed("json") {
		cfg.Log.JSON = o.jsonLog
	}
	if o.verbosity > 0 {
		cfg.Log.Verbosity = o.verbosity
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Verbosity); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	o.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
