package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// addConstant extracts a top-level assignment whose first target is a simple name.
func (e *Extractor) addConstant(fe *FileExtraction, lines []string, node *syntax.Node) {
	if len(node.Targets) == 0 {
		return
	}
	if !node.HasValue {
		if node.Annotation != "" && !node.Incomplete {
			// bare annotation, nothing is bound
			return
		}
		e.warn(fe, node, fmt.Errorf("%w: assignment has no value", ErrEntityExtraction))
		return
	}

	treeEnd := 0
	if e.preferTreeSpans {
		treeEnd = node.EndLine
	}
	span, err := RecoverStatementSpan(lines, node.Line, treeEnd)
	if err != nil {
		e.warn(fe, node, fmt.Errorf("%w: %w", ErrEntityExtraction, err))
		return
	}

	text := span.Text
	if text == "" || strings.HasPrefix(strings.TrimSpace(text), "#") || !strings.Contains(text, "=") {
		return
	}

	fe.Constants = append(fe.Constants, ConstantBinding{
		Name:       node.Targets[0],
		SourceText: text,
		Line:       span.StartLine,
		OriginFile: fe.Path,
	})
	e.logger.Debug("found constant", "file", fe.Path, "name", node.Targets[0], "chars", len(text))
}

// ConstantSet deduplicates constant bindings by name across a run; the first
// binding seen for a name wins. It is not safe for concurrent use: the caller
// owns it and feeds files in a stable order.
type ConstantSet struct {
	seen     map[string]int
	bindings []ConstantBinding
	logger   *slog.Logger
}

// NewConstantSet creates an empty ConstantSet.
func NewConstantSet(logger *slog.Logger) *ConstantSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConstantSet{
		seen:   make(map[string]int),
		logger: logger,
	}
}

// Add inserts b unless its name is already present. It reports whether b was kept.
func (s *ConstantSet) Add(b ConstantBinding) bool {
	if idx, ok := s.seen[b.Name]; ok {
		first := s.bindings[idx]
		s.logger.Debug("skipped duplicate constant",
			"name", b.Name,
			"file", b.OriginFile,
			"first_file", first.OriginFile)
		return false
	}
	s.seen[b.Name] = len(s.bindings)
	s.bindings = append(s.bindings, b)
	return true
}

// Lookup returns the binding kept for name.
func (s *ConstantSet) Lookup(name string) (ConstantBinding, bool) {
	idx, ok := s.seen[name]
	if !ok {
		return ConstantBinding{}, false
	}
	return s.bindings[idx], true
}

// Len returns the number of distinct names.
func (s *ConstantSet) Len() int {
	return len(s.bindings)
}

// Bindings returns the kept bindings in first-seen order.
func (s *ConstantSet) Bindings() []ConstantBinding {
	out := make([]ConstantBinding, len(s.bindings))
	copy(out, s.bindings)
	return out
}
