package cli

import (
	"fmt"
	"log/slog"

	"github.com/mvp-joe/mcpforge/internal/builder"
	"github.com/mvp-joe/mcpforge/internal/config"
	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// pipeline bundles the runner with the parse cache it reads through.
type pipeline struct {
	runner *builder.Runner
	cache  *builder.ParseCache
}

// Close releases the parse cache.
func (p *pipeline) Close() {
	p.cache.Close()
}

// newPipeline wires provider, cache, extractor and runner from cfg.
func newPipeline(cfg *config.Config, progress builder.ProgressReporter, logger *slog.Logger) (*pipeline, error) {
	provider := syntax.NewPythonProvider()
	provider.Strict = cfg.Extraction.Strict

	cache, err := builder.NewParseCache(provider, cfg.Extraction.CacheSize)
	if err != nil {
		return nil, err
	}

	ex, err := extractor.New(extractor.Options{
		IsEntryPoint:    extractor.MarkerDecorator(cfg.Marker.Namespace, cfg.Marker.Verb),
		DropSelf:        cfg.Extraction.DropSelf,
		PreferTreeSpans: cfg.Extraction.PreferTreeSpans,
		Logger:          logger,
	})
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	runner, err := builder.NewRunner(builder.Options{
		Provider:  cache,
		Extractor: ex,
		Workers:   cfg.Extraction.Workers,
		Include:   cfg.Paths.Include,
		Ignore:    cfg.Paths.Ignore,
		Progress:  progress,
		Logger:    logger,
	})
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &pipeline{runner: runner, cache: cache}, nil
}
