package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/coderline/phase/errors"
	"github.com/coderline/phase/logger"
)

const watchDebounce = 300 * time.Millisecond

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <compilation.yaml>",
		Short: "Translate, then translate again whenever the compilation or template table changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			files := []string{path}
			if opts.cfg.Templates.File != "" {
				files = append(files, opts.cfg.Templates.File)
			}
			run := func() {
				if _, err := translate(cmd.Context(), opts, path, false, cmd.OutOrStdout()); err != nil {
					logger.Errorw("translation failed", "path", path, "error", err)
				}
			}
			run()
			return watch(cmd.Context(), files, watchDebounce, run)
		},
	}
}

// watch calls fn once per burst of writes to any of files until ctx is done.
// Directories are watched rather than the files so editors that replace a file on
// save keep triggering.
func watch(ctx context.Context, files []string, debounce time.Duration, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer w.Close()

	watched := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", f)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !watched[abs] || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Infow("change detected", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watcher error", "error", err)
		case <-timer.C:
			fn()
		}
	}
}
