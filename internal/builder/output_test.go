package builder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/mcpforge/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *extractor.Result {
	return &extractor.Result{
		Files: []string{"calc.py"},
		EntryPoints: []extractor.SourceEntity{{
			Name:       "add",
			Kind:       extractor.EntryPoint,
			Signature:  "(a: int, b: int) -> int",
			SourceText: "@mcp.tool()\ndef add(a: int, b: int) -> int:\n    return a + b",
			StartLine:  1,
			DefLine:    2,
			EndLine:    3,
			OriginFile: "calc.py",
		}},
		Helpers:   []extractor.SourceEntity{},
		Constants: []extractor.ConstantBinding{{Name: "X", SourceText: "X = 1", Line: 5, OriginFile: "calc.py"}},
		Imports:   []extractor.ImportStatement{},
	}
}

func TestNewManifest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManifest(8000, sampleResult(), now)

	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, 8000, m.ServerPort)
	assert.Equal(t, 8001, m.ClientPort)
	assert.Equal(t, "http://127.0.0.1:8000/gradio_api/mcp/sse", m.MCPSSEEndpoint)
	assert.Equal(t, now, m.GeneratedAt)
	assert.Equal(t, 1, m.EntryPoints)
	assert.Equal(t, 1, m.Constants)

	assert.Equal(t, DefaultServerPort, NewManifest(0, nil, now).ServerPort)
	assert.NotEqual(t, m.RunID, NewManifest(8000, nil, now).RunID)
}

func TestEncode(t *testing.T) {
	t.Parallel()

	res := sampleResult()

	t.Run("json", func(t *testing.T) {
		data, err := Encode(res, FormatJSON)
		require.NoError(t, err)

		var decoded extractor.Result
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, extractor.EntryPoint, decoded.EntryPoints[0].Kind)
		assert.Contains(t, string(data), `"kind": "entry_point"`)
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := Encode(res, FormatYAML)
		require.NoError(t, err)
		assert.Contains(t, string(data), "kind: entry_point")

		var decoded extractor.Result
		require.NoError(t, yaml.Unmarshal(data, &decoded))
		assert.Equal(t, res.EntryPoints[0].SourceText, decoded.EntryPoints[0].SourceText)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Encode(res, "toml")
		assert.Error(t, err)
	})
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	manifest := NewManifest(7860, sampleResult(), time.Now())

	paths, err := WriteOutput(dir, FormatYAML, sampleResult(), manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "extraction.yaml"), filepath.Join(dir, "config.json")}, paths)

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(7861), decoded["client_port"])
	assert.Equal(t, manifest.RunID, decoded["run_id"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"))
	}
}
