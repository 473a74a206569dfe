package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/mvp-joe/mcpforge/internal/syntax"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of files parsed concurrently when unset.
const DefaultWorkers = 4

// Source is one file's content, read from disk or supplied by a client.
type Source struct {
	Path    string
	Content []byte
}

// Options configures a Runner.
type Options struct {
	Provider  syntax.Provider      // required
	Extractor *extractor.Extractor // required
	Workers   int

	// Include and Ignore are glob patterns applied to directory inputs.
	Include []string
	Ignore  []string

	Improver DocstringImprover
	Progress ProgressReporter
	Logger   *slog.Logger
}

// Runner drives a multi-file extraction: resolve inputs, parse and extract files
// concurrently, then merge them in input order.
type Runner struct {
	provider  syntax.Provider
	extractor *extractor.Extractor
	workers   int
	include   []string
	ignore    []string
	improver  DocstringImprover
	progress  ProgressReporter
	logger    *slog.Logger

	progressMu sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Provider == nil {
		return nil, errors.New("builder: provider is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("builder: extractor is required")
	}

	r := &Runner{
		provider:  opts.Provider,
		extractor: opts.Extractor,
		workers:   opts.Workers,
		include:   opts.Include,
		ignore:    opts.Ignore,
		improver:  opts.Improver,
		progress:  opts.Progress,
		logger:    opts.Logger,
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}
	if len(r.include) == 0 {
		r.include = []string{"**/*.py"}
	}
	if r.improver == nil {
		r.improver = PreserveDocstrings{}
	}
	if r.progress == nil {
		r.progress = &NoOpProgressReporter{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Run resolves paths (files or directories) and extracts every Python file found.
// On ErrNoEntryPoints the partial result is returned along with the error.
func (r *Runner) Run(ctx context.Context, paths []string) (*extractor.Result, error) {
	r.progress.OnDiscoveryStart()
	files, err := ResolveInputs(paths, r.include, r.ignore)
	if err != nil {
		return nil, err
	}
	r.progress.OnDiscoveryComplete(len(files))
	r.logger.Debug("resolved inputs", "files", len(files))

	sources := make([]Source, len(files))
	for i, f := range files {
		sources[i] = Source{Path: f}
	}
	return r.Extract(ctx, sources)
}

// Extract parses and extracts the given sources. Sources with nil Content are
// read from disk. Any unparsable file aborts the run.
func (r *Runner) Extract(ctx context.Context, sources []Source) (*extractor.Result, error) {
	start := time.Now()
	r.progress.OnFileProcessingStart(len(sources))

	results := make([]*extractor.FileExtraction, len(sources))

	workers := r.workers
	if workers > len(sources) {
		workers = len(sources)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, src := range sources {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			fe, err := r.extractOne(gctx, src)
			if err != nil {
				return err
			}
			results[i] = fe
			r.fileProcessed(src.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge on one goroutine in input order so first-seen constants are stable.
	collector := extractor.NewCollector(r.logger)
	for _, fe := range results {
		collector.Add(fe)
	}
	res, err := collector.Result()
	if err != nil {
		return res, err
	}

	r.improveDocstrings(ctx, res)

	r.progress.OnComplete(&Stats{
		Files:       len(res.Files),
		EntryPoints: len(res.EntryPoints),
		Helpers:     len(res.Helpers),
		Constants:   len(res.Constants),
		Imports:     len(res.Imports),
		Warnings:    len(res.Warnings),
		Duration:    time.Since(start),
	})
	return res, nil
}

func (r *Runner) extractOne(ctx context.Context, src Source) (*extractor.FileExtraction, error) {
	content := src.Content
	if content == nil {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("builder: read %s: %w", src.Path, err)
		}
		content = data
	}

	mod, err := r.provider.Parse(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("builder: parse %s: %w", src.Path, err)
	}
	return r.extractor.ExtractFile(src.Path, content, mod), nil
}

func (r *Runner) fileProcessed(path string) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.progress.OnFileProcessed(path)
}

// improveDocstrings rewrites entry point docstrings. A failure keeps the original.
func (r *Runner) improveDocstrings(ctx context.Context, res *extractor.Result) {
	for i := range res.EntryPoints {
		ep := &res.EntryPoints[i]
		improved, err := r.improver.Improve(ctx, ep.Name, ep.Docstring, ep.Signature)
		if err != nil {
			r.logger.Warn("failed to improve docstring, keeping original",
				"name", ep.Name,
				"file", ep.OriginFile,
				"error", err)
			continue
		}
		ep.Docstring = improved
	}
}
