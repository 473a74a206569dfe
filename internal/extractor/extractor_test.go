package extractor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mvp-joe/mcpforge/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Extractor:
// - Entry points are recognized by the configured call-form decorator
// - Helpers and entry points are segregated and keep source order
// - Class methods are classified independently, "self" is dropped
// - Nested functions are invisible
// - A bad constant or entity is dropped with a warning; the rest of the file survives
// - An assignment without a value does not swallow the following entry point
// - Extraction is idempotent
// - Recovered source text reparses to the same name and kind
// - Boundary: startLine tracks the decorator block, including multi-line decorators

const mixedSource = `"""Calculator tools."""
import math
from typing import Optional, List as L

PI_ISH = 3.14

LIMITS = {
    "max": 10,
}


def helper(x):
    def inner():
        return x
    return inner()


@entry.mark()
@functools.cache
def add(a: float, b: float) -> float:
    """Add two numbers."""
    return a + b


class Tools:
    @entry.mark()
    def scale(self, x: float, factor: float = 2.0) -> float:
        """Scale x."""
        return x * factor

    def reset(self):
        pass


async def fetch(url: str) -> str:
    return url
`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := New(Options{
		IsEntryPoint:    MarkerDecorator("entry", "mark"),
		DropSelf:        true,
		PreferTreeSpans: true,
		Logger:          slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return ex
}

func extract(t *testing.T, ex *Extractor, path, src string) *FileExtraction {
	t.Helper()
	mod, err := syntax.NewPythonProvider().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return ex.ExtractFile(path, []byte(src), mod)
}

func names(entities []SourceEntity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

func TestNew_RequiresMatcher(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.True(t, errors.Is(err, ErrNoMatcher))
}

func TestMarkerDecorator(t *testing.T) {
	t.Parallel()

	match := MarkerDecorator("mcp", "tool")

	assert.True(t, match(syntax.Decorator{Call: true, Object: "mcp", Attr: "tool"}))
	assert.False(t, match(syntax.Decorator{Call: false, Object: "mcp", Attr: "tool"}), "bare attribute is not a call")
	assert.False(t, match(syntax.Decorator{Call: true, Attr: "tool"}))
	assert.False(t, match(syntax.Decorator{Call: true, Object: "other", Attr: "tool"}))
}

func TestExtractFile_SingleEntryPoint(t *testing.T) {
	t.Parallel()

	fe := extract(t, newTestExtractor(t), "a.py", "@entry.mark()\ndef f(a: int) -> int:\n    return a\n")

	require.Len(t, fe.EntryPoints, 1)
	assert.Empty(t, fe.Helpers)

	f := fe.EntryPoints[0]
	assert.Equal(t, "f", f.Name)
	assert.Equal(t, EntryPoint, f.Kind)
	assert.Equal(t, "(a: int) -> int", f.Signature)
	assert.Equal(t, "@entry.mark()\ndef f(a: int) -> int:\n    return a", f.SourceText)
	assert.Equal(t, 1, f.StartLine)
	assert.Equal(t, 2, f.DefLine)
	assert.Equal(t, "a.py", f.OriginFile)
}

func TestExtractFile_HelperAndEntryPoint(t *testing.T) {
	t.Parallel()

	fe := extract(t, newTestExtractor(t), "b.py", "def helper():\n    pass\n\n@entry.mark()\ndef g():\n    pass\n")

	assert.Equal(t, []string{"helper"}, names(fe.Helpers))
	assert.Equal(t, []string{"g"}, names(fe.EntryPoints))
	assert.Equal(t, Helper, fe.Helpers[0].Kind)
	assert.Equal(t, "def helper():\n    pass", fe.Helpers[0].SourceText)
}

func TestExtractFile_ClassMethod(t *testing.T) {
	t.Parallel()

	src := "class C:\n    @entry.mark()\n    def m(self, x: str):\n        return x\n"
	fe := extract(t, newTestExtractor(t), "c.py", src)

	require.Len(t, fe.EntryPoints, 1)
	m := fe.EntryPoints[0]
	assert.Equal(t, "m", m.Name)
	assert.Equal(t, "C", m.Class)
	assert.Equal(t, "(x: str)", m.Signature)
	assert.Equal(t, 2, m.StartLine)
	assert.Equal(t, "    @entry.mark()\n    def m(self, x: str):\n        return x", m.SourceText)
}

func TestExtractFile_KeepSelfWhenDisabled(t *testing.T) {
	t.Parallel()

	ex, err := New(Options{
		IsEntryPoint: MarkerDecorator("entry", "mark"),
		Logger:       slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	fe := extract(t, ex, "c.py", "class C:\n    @entry.mark()\n    def m(self, x: str):\n        return x\n")
	require.Len(t, fe.EntryPoints, 1)
	assert.Equal(t, "(self, x: str)", fe.EntryPoints[0].Signature)
}

func TestExtractFile_MalformedConstantIsSkipped(t *testing.T) {
	t.Parallel()

	src := "FOO =\nBAR = 1\n\n@entry.mark()\ndef g():\n    pass\n"
	fe := extract(t, newTestExtractor(t), "d.py", src)

	require.Len(t, fe.Constants, 1)
	assert.Equal(t, "BAR", fe.Constants[0].Name)
	assert.Equal(t, "BAR = 1", fe.Constants[0].SourceText)
	assert.Equal(t, []string{"g"}, names(fe.EntryPoints))
	assert.Empty(t, fe.Helpers)

	require.Len(t, fe.Warnings, 1)
	assert.Equal(t, "FOO", fe.Warnings[0].Entity)
	assert.Equal(t, 1, fe.Warnings[0].Line)
	assert.Contains(t, fe.Warnings[0].Reason, "no value")
}

func TestExtractFile_MalformedConstantBetweenEntryPoints(t *testing.T) {
	t.Parallel()

	src := "@entry.mark()\ndef f():\n    pass\n\nFOO =\n\n@entry.mark()\ndef g():\n    pass\n"
	fe := extract(t, newTestExtractor(t), "d.py", src)

	assert.Equal(t, []string{"f", "g"}, names(fe.EntryPoints))
	assert.Empty(t, fe.Helpers)
	assert.Empty(t, fe.Constants)
	assert.Equal(t, "@entry.mark()\ndef g():\n    pass", fe.EntryPoints[1].SourceText)
	assert.Equal(t, 7, fe.EntryPoints[1].StartLine)

	require.Len(t, fe.Warnings, 1)
	assert.Equal(t, "FOO", fe.Warnings[0].Entity)
	assert.Equal(t, 5, fe.Warnings[0].Line)
}

func TestExtractFile_IncompleteAnnotatedConstantWarns(t *testing.T) {
	t.Parallel()

	fe := extract(t, newTestExtractor(t), "d.py", "FOO: int =\nBAR = 2\nBAZ: str\n")

	require.Len(t, fe.Constants, 1)
	assert.Equal(t, "BAR", fe.Constants[0].Name)
	require.Len(t, fe.Warnings, 1, "bare annotation is skipped silently")
	assert.Equal(t, "FOO", fe.Warnings[0].Entity)
}

func TestExtractFile_WarningNamesAssignmentTarget(t *testing.T) {
	t.Parallel()

	mod := &syntax.Module{Body: []*syntax.Node{
		{Kind: syntax.KindAssignment, Line: 1, EndLine: 1, Targets: []string{"FOO"}},
	}}

	fe := newTestExtractor(t).ExtractFile("d.py", []byte("FOO =\n"), mod)

	assert.Empty(t, fe.Constants)
	require.Len(t, fe.Warnings, 1)
	assert.Equal(t, "FOO", fe.Warnings[0].Entity)
}

func TestExtractFile_MultiLineDecorator(t *testing.T) {
	t.Parallel()

	ex := newTestExtractor(t)
	src := "@entry.mark(\n    name=\"x\",\n)\ndef f(a: int) -> int:\n    return a\n\nclass C:\n    @entry.mark(\n        name=\"y\",\n    )\n    def m(self):\n        pass\n"
	fe := extract(t, ex, "m.py", src)

	require.Equal(t, []string{"f", "m"}, names(fe.EntryPoints))

	f := fe.EntryPoints[0]
	assert.Equal(t, 1, f.StartLine)
	assert.Equal(t, 4, f.DefLine)
	assert.Equal(t, "@entry.mark(\n    name=\"x\",\n)\ndef f(a: int) -> int:\n    return a", f.SourceText)

	m := fe.EntryPoints[1]
	assert.Equal(t, 8, m.StartLine)
	assert.True(t, strings.HasPrefix(m.SourceText, "    @entry.mark(\n"))

	for _, entity := range fe.EntryPoints {
		again := extract(t, ex, "reparsed.py", dedent(entity.SourceText)+"\n")
		require.Len(t, again.EntryPoints, 1, entity.Name)
		assert.Equal(t, entity.Name, again.EntryPoints[0].Name)
		assert.Empty(t, again.Helpers, entity.Name)
	}
}

func TestExtractFile_BadEntityIsolated(t *testing.T) {
	t.Parallel()

	src := "def broken(a):\n    pass\n\ndef ok():\n    pass\n"
	mod := &syntax.Module{Body: []*syntax.Node{
		{Kind: syntax.KindFunction, Name: "broken", Line: 1, Params: []syntax.Param{{}}},
		{Kind: syntax.KindFunction, Name: "ghost", Line: 42},
		{Kind: syntax.KindFunction, Name: "ok", Line: 4},
	}}

	fe := newTestExtractor(t).ExtractFile("e.py", []byte(src), mod)

	assert.Equal(t, []string{"ok"}, names(fe.Helpers))
	require.Len(t, fe.Warnings, 2)
	assert.Equal(t, "broken", fe.Warnings[0].Entity)
	assert.Contains(t, fe.Warnings[0].Reason, ErrMalformedParam.Error())
	assert.Equal(t, "ghost", fe.Warnings[1].Entity)
	assert.Contains(t, fe.Warnings[1].Reason, ErrInvalidLine.Error())
}

func TestExtractFile_Mixed(t *testing.T) {
	t.Parallel()

	fe := extract(t, newTestExtractor(t), "tools.py", mixedSource)

	assert.Equal(t, "Calculator tools.", fe.ModuleDocstring)
	assert.Equal(t, []string{"add", "scale"}, names(fe.EntryPoints))
	assert.Equal(t, []string{"helper", "reset", "fetch"}, names(fe.Helpers), "nested inner is invisible")

	add := fe.EntryPoints[0]
	assert.Equal(t, "Add two numbers.", add.Docstring)
	assert.Equal(t, "(a: float, b: float) -> float", add.Signature)
	assert.Equal(t, add.DefLine-2, add.StartLine, "two decorator lines")
	assert.True(t, strings.HasPrefix(add.SourceText, "@entry.mark()\n@functools.cache\ndef add("))

	scale := fe.EntryPoints[1]
	assert.Equal(t, "(x: float, factor: float) -> float", scale.Signature)
	assert.Equal(t, "Tools", scale.Class)

	fetch := fe.Helpers[2]
	assert.True(t, fetch.Async)
	assert.Equal(t, fetch.DefLine, fetch.StartLine)

	require.Len(t, fe.Constants, 2)
	assert.Equal(t, "PI_ISH", fe.Constants[0].Name)
	assert.Equal(t, "PI_ISH = 3.14", fe.Constants[0].SourceText)
	assert.Equal(t, "LIMITS", fe.Constants[1].Name)
	assert.Equal(t, "LIMITS = {\n    \"max\": 10,\n}", fe.Constants[1].SourceText)

	var imports []string
	for _, imp := range fe.Imports {
		imports = append(imports, imp.Text)
	}
	assert.Equal(t, []string{"import math", "from typing import Optional, List as L"}, imports)
	assert.Empty(t, fe.Warnings)
}

func TestExtractFile_Ordering(t *testing.T) {
	t.Parallel()

	fe := extract(t, newTestExtractor(t), "tools.py", mixedSource)

	all := append(append([]SourceEntity{}, fe.EntryPoints...), fe.Helpers...)
	byLine := map[string]int{}
	for _, e := range all {
		byLine[e.Name] = e.DefLine
	}
	assert.Less(t, byLine["helper"], byLine["add"])
	assert.Less(t, byLine["add"], byLine["scale"])
	assert.Less(t, byLine["scale"], byLine["reset"])
	assert.Less(t, byLine["reset"], byLine["fetch"])

	for _, group := range [][]SourceEntity{fe.EntryPoints, fe.Helpers} {
		for i := 1; i < len(group); i++ {
			assert.Less(t, group[i-1].DefLine, group[i].DefLine)
		}
	}
}

func TestExtractFile_Idempotent(t *testing.T) {
	t.Parallel()

	ex := newTestExtractor(t)
	first := extract(t, ex, "tools.py", mixedSource)
	second := extract(t, ex, "tools.py", mixedSource)

	assert.Equal(t, first, second)
}

func TestExtractFile_HeuristicMatchesTreeSpans(t *testing.T) {
	t.Parallel()

	heuristic, err := New(Options{
		IsEntryPoint: MarkerDecorator("entry", "mark"),
		DropSelf:     true,
		Logger:       slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	tree := extract(t, newTestExtractor(t), "tools.py", mixedSource)
	fallback := extract(t, heuristic, "tools.py", mixedSource)

	require.Equal(t, names(tree.EntryPoints), names(fallback.EntryPoints))
	for i := range tree.EntryPoints {
		assert.Equal(t, tree.EntryPoints[i].SourceText, fallback.EntryPoints[i].SourceText)
	}
}

func TestExtractFile_SourceTextReparses(t *testing.T) {
	t.Parallel()

	ex := newTestExtractor(t)
	fe := extract(t, ex, "tools.py", mixedSource)

	for _, group := range [][]SourceEntity{fe.EntryPoints, fe.Helpers} {
		for _, entity := range group {
			text := dedent(entity.SourceText)
			again := extract(t, ex, "reparsed.py", text+"\n")

			all := append(append([]SourceEntity{}, again.EntryPoints...), again.Helpers...)
			require.Len(t, all, 1, entity.Name)
			assert.Equal(t, entity.Name, all[0].Name)
			assert.Equal(t, entity.Kind, all[0].Kind, entity.Name)
		}
	}
}

func TestExtractFile_NilModule(t *testing.T) {
	t.Parallel()

	fe := newTestExtractor(t).ExtractFile("x.py", nil, nil)
	assert.Equal(t, "x.py", fe.Path)
	assert.Empty(t, fe.EntryPoints)
}

// dedent removes the first line's indentation from every line.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	prefix := lines[0][:indentWidth(lines[0])]
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
