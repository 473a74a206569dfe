package syntax

import (
	"context"
	"errors"
)

// ErrUnparsable indicates the source could not be turned into a syntax tree.
var ErrUnparsable = errors.New("unparsable source")

// Provider turns raw source text into a Module.
type Provider interface {
	Parse(ctx context.Context, source []byte) (*Module, error)
}

// Kind classifies a top-level (or class-level) statement.
type Kind int

const (
	KindOther Kind = iota
	KindFunction
	KindClass
	KindAssignment
	KindImport
	KindImportFrom
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindAssignment:
		return "assignment"
	case KindImport:
		return "import"
	case KindImportFrom:
		return "import_from"
	default:
		return "other"
	}
}

// Module is the narrow view of a parsed source file the extractor works on.
type Module struct {
	Docstring string
	Body      []*Node
}

// Node is a statement of a Module body or of a class body.
// Line numbers are 1-based. StartLine and EndLine are 0 when the provider cannot
// supply them.
type Node struct {
	Kind      Kind
	Name      string
	Line      int // def/class keyword line, or first line of the statement
	StartLine int // first decorator line of a definition, Line when undecorated
	EndLine   int

	// Functions and classes
	Async      bool
	Decorators []Decorator
	Params     []Param
	Returns    string
	Docstring  string
	Body       []*Node // immediate methods of a class; always empty for functions

	// Assignments
	Targets    []string // simple identifier targets, left to right
	Annotation string
	HasValue   bool
	Incomplete bool // "=" present but no value follows on the same logical line

	// Imports
	Module   string   // from-import source module, as written (may be relative)
	Names    []string // imported names, "name" or "name as alias"
	Wildcard bool
}

// Decorator describes one decorator expression.
// For "@ns.verb(...)" Call is true, Object is "ns" and Attr is "verb".
type Decorator struct {
	Text   string
	Call   bool
	Object string
	Attr   string
}

// Param is one entry of a parameter list.
type Param struct {
	Name     string
	Type     string // annotation source text, empty when untyped
	Variadic bool   // *args or **kwargs
}
