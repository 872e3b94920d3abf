package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderline/phase/compiler"
	"github.com/coderline/phase/errors"
	phaseruntime "github.com/coderline/phase/runtime"
)

func newRuntimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtime <backend> <dir>",
		Short: "Write the runtime support sources of a backend",
		Long: `Write the support sources generated code of a backend links against.

Only cpp (phase/runtime.h) and rust (phase.rs) ship a runtime; the other backends
use their standard libraries.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, dir := args[0], args[1]
			if _, err := compiler.NewRenderer(backend); err != nil {
				return err
			}
			if len(phaseruntime.Files(backend)) == 0 {
				return errors.WithHintf(errors.Newf("backend %s has no runtime", backend),
					"backends with a runtime: %s", strings.Join(phaseruntime.Backends(), ", "))
			}
			written, err := phaseruntime.Write(backend, dir)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
