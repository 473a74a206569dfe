package extractor

import (
	"fmt"
	"log/slog"

	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// DecoratorMatcher reports whether a decorator marks an entry point.
type DecoratorMatcher func(syntax.Decorator) bool

// MarkerDecorator matches the call-form decorator "@namespace.verb(...)".
func MarkerDecorator(namespace, verb string) DecoratorMatcher {
	return func(d syntax.Decorator) bool {
		return d.Call && d.Object == namespace && d.Attr == verb
	}
}

// Options configures an Extractor.
type Options struct {
	// IsEntryPoint decides whether a decorator marks an entry point. Required.
	IsEntryPoint DecoratorMatcher

	// DropSelf removes a first method parameter literally named "self".
	DropSelf bool

	// PreferTreeSpans uses tree-provided end lines instead of the indentation heuristic.
	PreferTreeSpans bool

	Logger *slog.Logger
}

// Extractor classifies and recovers the entities of one parsed file.
// It holds no per-file state and is safe for concurrent use.
type Extractor struct {
	isEntryPoint    DecoratorMatcher
	dropSelf        bool
	preferTreeSpans bool
	logger          *slog.Logger
}

// New creates an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.IsEntryPoint == nil {
		return nil, ErrNoMatcher
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		isEntryPoint:    opts.IsEntryPoint,
		dropSelf:        opts.DropSelf,
		preferTreeSpans: opts.PreferTreeSpans,
		logger:          logger,
	}, nil
}

// ExtractFile walks the top-level statements of mod. Failures on single entities
// are logged and recorded as warnings; they never abort the file.
func (e *Extractor) ExtractFile(path string, source []byte, mod *syntax.Module) *FileExtraction {
	lines := SplitLines(string(source))
	fe := &FileExtraction{
		Path:        path,
		EntryPoints: []SourceEntity{},
		Helpers:     []SourceEntity{},
		Constants:   []ConstantBinding{},
		Imports:     []ImportStatement{},
	}
	if mod == nil {
		return fe
	}
	fe.ModuleDocstring = mod.Docstring

	for _, node := range mod.Body {
		switch node.Kind {
		case syntax.KindFunction:
			e.addEntity(fe, lines, node, "")
		case syntax.KindClass:
			for _, method := range node.Body {
				if method.Kind == syntax.KindFunction {
					e.addEntity(fe, lines, method, node.Name)
				}
			}
		case syntax.KindAssignment:
			e.addConstant(fe, lines, node)
		case syntax.KindImport, syntax.KindImportFrom:
			fe.Imports = append(fe.Imports, CollectImports(path, node)...)
		}
	}

	e.logger.Info("parsed file",
		"file", path,
		"entry_points", len(fe.EntryPoints),
		"helpers", len(fe.Helpers),
		"constants", len(fe.Constants),
		"imports", len(fe.Imports))
	return fe
}

func (e *Extractor) addEntity(fe *FileExtraction, lines []string, node *syntax.Node, class string) {
	entity, err := e.buildEntity(fe.Path, lines, node, class)
	if err != nil {
		e.warn(fe, node, err)
		return
	}

	if entity.Kind == EntryPoint {
		fe.EntryPoints = append(fe.EntryPoints, entity)
	} else {
		fe.Helpers = append(fe.Helpers, entity)
	}
	e.logger.Debug("found entity",
		"file", fe.Path,
		"name", entity.Name,
		"kind", entity.Kind.String(),
		"line", entity.DefLine)
}

func (e *Extractor) buildEntity(path string, lines []string, node *syntax.Node, class string) (SourceEntity, error) {
	if node.Name == "" {
		return SourceEntity{}, fmt.Errorf("%w: definition has no name", ErrEntityExtraction)
	}

	treeStart, treeEnd := 0, 0
	if e.preferTreeSpans {
		treeStart, treeEnd = node.StartLine, node.EndLine
	}
	span, err := RecoverDefinitionSpan(lines, treeStart, node.Line, treeEnd)
	if err != nil {
		return SourceEntity{}, fmt.Errorf("%w: %w", ErrEntityExtraction, err)
	}

	params := node.Params
	if class != "" && e.dropSelf {
		params = dropSelf(params)
	}
	signature, err := BuildSignature(params, node.Returns)
	if err != nil {
		return SourceEntity{}, fmt.Errorf("%w: %w", ErrEntityExtraction, err)
	}

	return SourceEntity{
		Name:       node.Name,
		Kind:       e.classify(node),
		Class:      class,
		Async:      node.Async,
		Docstring:  node.Docstring,
		Signature:  signature,
		SourceText: span.Text,
		StartLine:  span.StartLine,
		DefLine:    node.Line,
		EndLine:    span.EndLine,
		OriginFile: path,
	}, nil
}

// classify reports EntryPoint when any decorator matches.
func (e *Extractor) classify(node *syntax.Node) EntityKind {
	for _, d := range node.Decorators {
		if e.isEntryPoint(d) {
			return EntryPoint
		}
	}
	return Helper
}

func (e *Extractor) warn(fe *FileExtraction, node *syntax.Node, err error) {
	name := node.Name
	if name == "" && len(node.Targets) > 0 {
		name = node.Targets[0]
	}
	if name == "" {
		name = "<" + node.Kind.String() + ">"
	}
	w := Warning{File: fe.Path, Entity: name, Line: node.Line, Reason: err.Error()}
	fe.Warnings = append(fe.Warnings, w)
	e.logger.Warn("skipping entity",
		"file", fe.Path,
		"name", name,
		"line", node.Line,
		"error", err)
}
