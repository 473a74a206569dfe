package extractor

import (
	"log/slog"
)

// Collector accumulates per-file extractions into a run Result. Files must be
// added in a stable order; constants are deduplicated first-seen-wins.
type Collector struct {
	constants  *ConstantSet
	entryNames map[string]string
	result     Result
	logger     *slog.Logger
}

// NewCollector creates an empty Collector.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		constants:  NewConstantSet(logger),
		entryNames: make(map[string]string),
		result: Result{
			Files:            []string{},
			ModuleDocstrings: map[string]string{},
			EntryPoints:      []SourceEntity{},
			Helpers:          []SourceEntity{},
			Constants:        []ConstantBinding{},
			Imports:          []ImportStatement{},
		},
		logger: logger,
	}
}

// Add merges one file into the run.
func (c *Collector) Add(fe *FileExtraction) {
	c.result.Files = append(c.result.Files, fe.Path)
	if fe.ModuleDocstring != "" {
		c.result.ModuleDocstrings[fe.Path] = fe.ModuleDocstring
	}

	for _, ep := range fe.EntryPoints {
		if first, ok := c.entryNames[ep.Name]; ok {
			c.logger.Warn("duplicate entry point name",
				"name", ep.Name,
				"file", fe.Path,
				"first_file", first)
		} else {
			c.entryNames[ep.Name] = fe.Path
		}
		c.result.EntryPoints = append(c.result.EntryPoints, ep)
	}
	c.result.Helpers = append(c.result.Helpers, fe.Helpers...)

	for _, b := range fe.Constants {
		c.constants.Add(b)
	}

	c.result.Imports = append(c.result.Imports, fe.Imports...)
	c.result.Warnings = append(c.result.Warnings, fe.Warnings...)
}

// Result returns the merged run. It fails with ErrNoEntryPoints when no file
// contributed an entry point.
func (c *Collector) Result() (*Result, error) {
	res := c.result
	res.Constants = c.constants.Bindings()
	if len(res.EntryPoints) == 0 {
		c.logger.Error("no entry points found in input files", "files", len(res.Files))
		return &res, ErrNoEntryPoints
	}
	c.logger.Info("extraction complete",
		"files", len(res.Files),
		"entry_points", len(res.EntryPoints),
		"helpers", len(res.Helpers),
		"constants", len(res.Constants))
	return &res, nil
}
