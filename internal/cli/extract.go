package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvp-joe/mcpforge/internal/builder"
	"github.com/mvp-joe/mcpforge/internal/config"
	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/mvp-joe/mcpforge/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	outputDir    string
	outputFormat string
	quietFlag    bool
	watchFlag    bool
	stdoutFlag   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract entry points, helpers, constants and imports from Python sources",
	Long: `Extract walks the given Python files and directories (default: the current
directory), finds every function carrying the entry point decorator and writes
the recovered source entities plus a run manifest (config.json) into the output
directory.

With --watch the extraction is re-run whenever a watched Python file changes.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (overrides output.dir)")
	extractCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format: json or yaml (overrides output.format)")
	extractCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress output")
	extractCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "re-run extraction when files change")
	extractCmd.Flags().BoolVar(&stdoutFlag, "stdout", false, "print the extraction result instead of writing files")
}

// extractSettings are the per-invocation output choices.
type extractSettings struct {
	OutputDir string
	Format    string
	Port      int
	Stdout    bool
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	settings := extractSettings{
		OutputDir: cfg.Output.Dir,
		Format:    cfg.Output.Format,
		Port:      cfg.Server.Port,
		Stdout:    stdoutFlag,
	}
	if outputDir != "" {
		settings.OutputDir = outputDir
	}
	if outputFormat != "" {
		if outputFormat != builder.FormatJSON && outputFormat != builder.FormatYAML {
			return fmt.Errorf("%w: %q", config.ErrInvalidFormat, outputFormat)
		}
		settings.Format = outputFormat
	}

	// Keep stdout clean for the result when printing it.
	quiet := quietFlag || stdoutFlag
	logger := newLogger(os.Stderr, verbose, quiet)
	progress := NewCLIProgressReporter(os.Stderr, quiet || watchFlag)

	p, err := newPipeline(cfg, progress, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received interrupt, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := extractOnce(ctx, p.runner, paths, settings, cmd.OutOrStdout(), logger); err != nil {
		if !watchFlag {
			return err
		}
		logger.Error("extraction failed", "error", err)
	}

	if !watchFlag {
		return nil
	}
	return watchAndExtract(ctx, p, cfg, paths, settings, cmd.OutOrStdout(), logger)
}

// extractOnce runs one extraction and writes its result. A run without entry
// points fails before anything is written.
func extractOnce(ctx context.Context, runner *builder.Runner, paths []string, settings extractSettings, stdout io.Writer, logger *slog.Logger) error {
	res, err := runner.Run(ctx, paths)
	if err != nil {
		if errors.Is(err, extractor.ErrNoEntryPoints) && res != nil {
			return fmt.Errorf("%w (searched %d files)", err, len(res.Files))
		}
		return err
	}

	for _, w := range res.Warnings {
		logger.Warn("entity skipped", "file", w.File, "entity", w.Entity, "line", w.Line, "reason", w.Reason)
	}

	if settings.Stdout {
		data, err := builder.Encode(res, settings.Format)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	manifest := builder.NewManifest(settings.Port, res, time.Now())
	written, err := builder.WriteOutput(settings.OutputDir, settings.Format, res, manifest)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Info("wrote output", "path", path)
	}
	logger.Info("extraction finished",
		"run_id", manifest.RunID,
		"entry_points", len(res.EntryPoints),
		"helpers", len(res.Helpers),
		"constants", len(res.Constants),
		"imports", len(res.Imports))
	return nil
}

// watchAndExtract re-runs the extraction after every batch of file changes
// until ctx is cancelled.
func watchAndExtract(ctx context.Context, p *pipeline, cfg *config.Config, paths []string, settings extractSettings, stdout io.Writer, logger *slog.Logger) error {
	skip, err := ignoreFilter(paths, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return err
	}

	w, err := watcher.NewFileWatcher(watcher.Options{
		Paths:    paths,
		Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		Skip:     skip,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	err = w.Start(ctx, func(files []string) {
		w.Pause()
		defer w.Resume()

		logger.Info("files changed, re-extracting", "files", len(files))
		if err := extractOnce(ctx, p.runner, paths, settings, stdout, logger); err != nil {
			logger.Error("extraction failed", "error", err)
		}
		logger.Debug("parse cache", "hits", p.cache.Hits(), "misses", p.cache.Misses())
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	logger.Info("watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return w.Stop()
}

// ignoreFilter applies the ignore rules of every directory input to watcher events.
func ignoreFilter(paths, includes, ignores []string) (func(string) bool, error) {
	var discoveries []*builder.Discovery
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", builder.ErrInputNotFound, path)
		}
		if !info.IsDir() {
			continue
		}
		d, err := builder.NewDiscovery(path, includes, ignores)
		if err != nil {
			return nil, err
		}
		discoveries = append(discoveries, d)
	}

	return func(path string) bool {
		for _, d := range discoveries {
			if d.Skip(path) {
				return true
			}
		}
		return false
	}, nil
}
