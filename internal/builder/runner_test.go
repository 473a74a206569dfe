package builder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/mvp-joe/mcpforge/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Runner:
// - Directory inputs are discovered, ignored dirs skipped, files merged in order
// - Constants are deduplicated across files, first file wins
// - Unparsable files abort the run with the path in the error
// - Runs without entry points fail with ErrNoEntryPoints
// - Inline sources (no disk read) are extracted
// - Docstring improver output is applied; failures keep the original
// - Progress callbacks fire once per file
// - Results are identical regardless of worker count

const fixtures = "../../testdata/python"

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	ex, err := extractor.New(extractor.Options{
		IsEntryPoint:    extractor.MarkerDecorator("mcp", "tool"),
		DropSelf:        true,
		PreferTreeSpans: true,
		Logger:          slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	if opts.Provider == nil {
		opts.Provider = syntax.NewPythonProvider()
	}
	opts.Extractor = ex
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Ignore == nil {
		opts.Ignore = []string{"venv/**"}
	}

	r, err := NewRunner(opts)
	require.NoError(t, err)
	return r
}

func entityNames(entities []extractor.SourceEntity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(Options{})
	assert.Error(t, err)

	_, err = NewRunner(Options{Provider: syntax.NewPythonProvider()})
	assert.Error(t, err)
}

func TestRunner_RunDirectory(t *testing.T) {
	t.Parallel()

	r := newRunner(t, Options{})
	res, err := r.Run(context.Background(), []string{fixtures})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(fixtures, "calculator.py"),
		filepath.Join(fixtures, "helpers_only.py"),
		filepath.Join(fixtures, "text_tools.py"),
	}, res.Files)

	assert.Equal(t, []string{"add", "sqrt", "count_words"}, entityNames(res.EntryPoints))
	assert.Equal(t, []string{"_clamp", "helper", "normalize"}, entityNames(res.Helpers))

	countWords := res.EntryPoints[2]
	assert.Equal(t, "(text: str) -> int", countWords.Signature)
	assert.Equal(t, "TextTools", countWords.Class)

	var constants []string
	for _, c := range res.Constants {
		constants = append(constants, c.SourceText)
	}
	assert.Equal(t, []string{"PRECISION = 2", `WORD = re.compile(r"\w+")`}, constants)

	assert.Equal(t, "Simple calculator tools.", res.ModuleDocstrings[filepath.Join(fixtures, "calculator.py")])
	assert.Len(t, res.Imports, 3)
}

func TestRunner_DeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	serial, err := newRunner(t, Options{Workers: 1}).Run(context.Background(), []string{fixtures})
	require.NoError(t, err)
	parallel, err := newRunner(t, Options{Workers: 8}).Run(context.Background(), []string{fixtures})
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestRunner_UnparsableFileAbortsRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.py")
	bad := filepath.Join(dir, "bad.py")
	require.NoError(t, os.WriteFile(good, []byte("@mcp.tool()\ndef f():\n    pass\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 'x'}, 0644))

	_, err := newRunner(t, Options{}).Run(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, syntax.ErrUnparsable))
	assert.Contains(t, err.Error(), bad)
}

func TestRunner_NoEntryPoints(t *testing.T) {
	t.Parallel()

	res, err := newRunner(t, Options{}).Run(context.Background(), []string{filepath.Join(fixtures, "helpers_only.py")})
	assert.True(t, errors.Is(err, extractor.ErrNoEntryPoints))
	require.NotNil(t, res)
	assert.Equal(t, []string{"helper"}, entityNames(res.Helpers))
}

func TestRunner_InlineSources(t *testing.T) {
	t.Parallel()

	res, err := newRunner(t, Options{}).Extract(context.Background(), []Source{
		{Path: "one.py", Content: []byte("X = 1\n\n@mcp.tool()\ndef a():\n    pass\n")},
		{Path: "two.py", Content: []byte("X = 2\n")},
	})
	require.NoError(t, err)
	require.Len(t, res.Constants, 1)
	assert.Equal(t, "X = 1", res.Constants[0].SourceText)
	assert.Equal(t, "one.py", res.Constants[0].OriginFile)
}

type upperImprover struct{}

func (upperImprover) Improve(_ context.Context, name, docstring, _ string) (string, error) {
	return name + ": " + docstring, nil
}

type failingImprover struct{}

func (failingImprover) Improve(context.Context, string, string, string) (string, error) {
	return "", errors.New("service unavailable")
}

func TestRunner_DocstringImprover(t *testing.T) {
	t.Parallel()

	input := []string{filepath.Join(fixtures, "calculator.py")}

	res, err := newRunner(t, Options{Improver: upperImprover{}}).Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "add: Add two numbers.", res.EntryPoints[0].Docstring)

	res, err = newRunner(t, Options{Improver: failingImprover{}}).Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Add two numbers.", res.EntryPoints[0].Docstring)
}

type recordingProgress struct {
	mu        sync.Mutex
	events    []string
	processed []string
	stats     *Stats
}

func (p *recordingProgress) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingProgress) OnDiscoveryStart()             { p.record("discovery_start") }
func (p *recordingProgress) OnDiscoveryComplete(files int) { p.record("discovery_complete") }
func (p *recordingProgress) OnFileProcessingStart(int)     { p.record("file_processing_start") }
func (p *recordingProgress) OnFileProcessed(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, name)
}
func (p *recordingProgress) OnComplete(stats *Stats) {
	p.record("complete")
	p.stats = stats
}

func TestRunner_Progress(t *testing.T) {
	t.Parallel()

	progress := &recordingProgress{}
	_, err := newRunner(t, Options{Progress: progress}).Run(context.Background(), []string{fixtures})
	require.NoError(t, err)

	assert.Equal(t, []string{"discovery_start", "discovery_complete", "file_processing_start", "complete"}, progress.events)
	assert.Len(t, progress.processed, 3)
	require.NotNil(t, progress.stats)
	assert.Equal(t, 3, progress.stats.EntryPoints)
	assert.Equal(t, 2, progress.stats.Constants)
}

func TestRunner_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, Options{}).Run(ctx, []string{fixtures})
	assert.Error(t, err)
}
