package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	// ManifestFile is the name of the run manifest in the output directory.
	ManifestFile = "config.json"

	extractionBase = "extraction"
)

// Encode serializes v as JSON (indented) or YAML.
func Encode(v any, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ExtractionFile returns the file name of the extraction output for format.
func ExtractionFile(format string) string {
	if format == "" {
		format = FormatJSON
	}
	return extractionBase + "." + format
}

// WriteOutput writes the extraction result and manifest into dir, creating it
// if needed. It returns the paths written.
func WriteOutput(dir, format string, result any, manifest *Manifest) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := Encode(result, format)
	if err != nil {
		return nil, err
	}
	resultPath := filepath.Join(dir, ExtractionFile(format))
	if err := writeFileAtomic(resultPath, data); err != nil {
		return nil, err
	}

	manifestData, err := Encode(manifest, FormatJSON)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(dir, ManifestFile)
	if err := writeFileAtomic(manifestPath, manifestData); err != nil {
		return nil, err
	}

	return []string{resultPath, manifestPath}, nil
}

// writeFileAtomic writes to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
