package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch file",
	Short: "Re-evaluate a YAML file every time it is saved",
	Long: `Evaluates the expressions in file, then again after every write.
Each run builds a fresh session, so rule files named by --rules are
re-read as well. Stops on interrupt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		return watchFile(ctx, args[0], cmd.OutOrStdout(), nil)
	},
}

const watchDebounce = 100 * time.Millisecond

// watchFile evaluates path now and after each change until ctx ends. The
// parent directory is watched so editors that replace the file on save
// are followed. ready, when non-nil, is closed once the watch is armed.
func watchFile(ctx context.Context, path string, out io.Writer, ready chan<- struct{}) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	runOnce := func() {
		if err := evalFile(ctx, abs, out); err != nil {
			logger.Warn("Evaluation failed", zap.String("file", path), zap.Error(err))
		}
	}
	runOnce()
	if ready != nil {
		close(ready)
	}

	// Saves often arrive as several events; evaluate once they settle.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("File changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			pending = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			runOnce()
		}
	}
}

func evalFile(ctx context.Context, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	exprs, err := readInputs(f, nil)
	f.Close()
	if err != nil {
		return err
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s (%d expressions)\n", filepath.Base(path), len(exprs))
	for _, e := range exprs {
		res, err := s.Rewrite(ctx, e)
		if err != nil {
			fmt.Fprintf(out, "%s -> %v (error: %v)\n", e, res, err)
			continue
		}
		fmt.Fprintf(out, "%s -> %s\n", e, res)
	}
	return nil
}
