package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coderline/phase/compiler"
	"github.com/coderline/phase/errors"
	"github.com/coderline/phase/logger"
	phaseruntime "github.com/coderline/phase/runtime"
)

func newTranslateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <compilation.yaml>",
		Short: "Emit every declared type for the selected backends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := translate(cmd.Context(), opts, args[0], false, cmd.OutOrStdout())
			return err
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <compilation.yaml>",
		Short: "Report constructs the selected backends cannot emit, without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := translate(cmd.Context(), opts, args[0], true, cmd.OutOrStdout())
			return err
		},
	}
}

// translate loads the compilation at path, runs the driver and, unless check is
// set, writes the artifacts
func translate(ctx context.Context, opts *options, path string, check bool, out io.Writer) (*compiler.Report, error) {
	cfg := opts.cfg
	comp, err := compiler.LoadCompilation(path)
	if err != nil {
		return nil, err
	}
	templates, err := compiler.LoadTemplateTable(cfg.Templates.File)
	if err != nil {
		return nil, err
	}
	driver, err := compiler.NewDriver(compiler.Options{
		Backends:  cfg.Backends,
		Workers:   cfg.WorkerCount(),
		Templates: templates,
		Check:     check,
		Trace:     logger.ShouldLogTrace(cfg.Log.Verbosity),
	})
	if err != nil {
		return nil, err
	}

	report, runErr := driver.Run(ctx, comp)
	if report == nil {
		return nil, runErr
	}
	printReport(out, report, check)
	if !check {
		if err := writeReport(opts, report); err != nil {
			return report, err
		}
	}
	if failed := report.Count(compiler.StatusFailed); failed > 0 {
		return report, errors.Wrapf(runErr, "%d of %d units failed", failed, len(report.Units))
	}
	return report, runErr
}

func writeReport(opts *options, report *compiler.Report) error {
	cfg := opts.cfg
	outputs := report.Outputs()
	if cfg.Output.Bundle != "" {
		if dir := filepath.Dir(cfg.Output.Bundle); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrapf(err, "failed to create directory for %s", cfg.Output.Bundle)
			}
		}
		if err := os.WriteFile(cfg.Output.Bundle, compiler.Bundle(outputs), 0644); err != nil {
			return errors.Wrapf(err, "failed to write bundle %s", cfg.Output.Bundle)
		}
		logger.Infow("bundle written", "path", cfg.Output.Bundle, "artifacts", len(outputs))
		return nil
	}
	if err := compiler.WriteOutputs(cfg.Output.Dir, outputs); err != nil {
		return err
	}
	if cfg.Runtime.Link {
		for _, b := range cfg.Backends {
			written, err := phaseruntime.Write(b, filepath.Join(cfg.Output.Dir, b))
			if err != nil {
				return err
			}
			for _, p := range written {
				logger.Debugw("runtime written", "backend", b, "path", p)
			}
		}
	}
	logger.Infow("artifacts written", "dir", cfg.Output.Dir, "artifacts", len(outputs))
	return nil
}
