package extractor

import (
	"fmt"
)

// EntityKind classifies an extracted callable.
type EntityKind int

const (
	// EntryPoint is a callable carrying the configured marker decorator.
	EntryPoint EntityKind = iota + 1
	// Helper is any other top-level function or class method.
	Helper
)

func (k EntityKind) String() string {
	switch k {
	case EntryPoint:
		return "entry_point"
	case Helper:
		return "helper"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EntityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EntityKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "entry_point":
		*k = EntryPoint
	case "helper":
		*k = Helper
	default:
		return fmt.Errorf("unknown entity kind %q", string(text))
	}
	return nil
}

// SourceEntity is one extracted function or method.
type SourceEntity struct {
	Name       string     `json:"name" yaml:"name"`
	Kind       EntityKind `json:"kind" yaml:"kind"`
	Class      string     `json:"class,omitempty" yaml:"class,omitempty"` // owning class for methods
	Async      bool       `json:"async,omitempty" yaml:"async,omitempty"`
	Docstring  string     `json:"docstring" yaml:"docstring"`
	Signature  string     `json:"signature" yaml:"signature"`
	SourceText string     `json:"source_text" yaml:"source_text"`
	StartLine  int        `json:"start_line" yaml:"start_line"` // first decorator line, or DefLine
	DefLine    int        `json:"def_line" yaml:"def_line"`
	EndLine    int        `json:"end_line" yaml:"end_line"`
	OriginFile string     `json:"origin_file" yaml:"origin_file"`
}

// ConstantBinding is one top-level name binding.
type ConstantBinding struct {
	Name       string `json:"name" yaml:"name"`
	SourceText string `json:"source_text" yaml:"source_text"`
	Line       int    `json:"line" yaml:"line"`
	OriginFile string `json:"origin_file" yaml:"origin_file"`
}

// ImportStatement is the canonical single-line form of a top-level import.
type ImportStatement struct {
	Text       string `json:"text" yaml:"text"`
	Line       int    `json:"line" yaml:"line"`
	OriginFile string `json:"origin_file" yaml:"origin_file"`
}

// Warning records an entity dropped during extraction.
type Warning struct {
	File   string `json:"file" yaml:"file"`
	Entity string `json:"entity" yaml:"entity"`
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", w.File, w.Line, w.Entity, w.Reason)
}

// FileExtraction holds everything extracted from a single file.
// Constants are the file's candidates before run-level deduplication.
type FileExtraction struct {
	Path            string            `json:"path" yaml:"path"`
	ModuleDocstring string            `json:"module_docstring,omitempty" yaml:"module_docstring,omitempty"`
	EntryPoints     []SourceEntity    `json:"entry_points" yaml:"entry_points"`
	Helpers         []SourceEntity    `json:"helpers" yaml:"helpers"`
	Constants       []ConstantBinding `json:"constants" yaml:"constants"`
	Imports         []ImportStatement `json:"imports" yaml:"imports"`
	Warnings        []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Result is the merged output of a multi-file run.
type Result struct {
	Files            []string          `json:"files" yaml:"files"`
	ModuleDocstrings map[string]string `json:"module_docstrings,omitempty" yaml:"module_docstrings,omitempty"`
	EntryPoints      []SourceEntity    `json:"entry_points" yaml:"entry_points"`
	Helpers          []SourceEntity    `json:"helpers" yaml:"helpers"`
	Constants        []ConstantBinding `json:"constants" yaml:"constants"`
	Imports          []ImportStatement `json:"imports" yaml:"imports"`
	Warnings         []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
