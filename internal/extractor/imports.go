package extractor

import (
	"strings"

	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// CollectImports renders an import node as canonical single-line statements.
// "import a, b" yields one statement per name; a from-import stays one statement.
func CollectImports(path string, node *syntax.Node) []ImportStatement {
	var out []ImportStatement
	add := func(text string) {
		out = append(out, ImportStatement{Text: text, Line: node.Line, OriginFile: path})
	}

	switch node.Kind {
	case syntax.KindImport:
		for _, name := range node.Names {
			add("import " + name)
		}
	case syntax.KindImportFrom:
		if node.Module == "" {
			return nil
		}
		switch {
		case node.Wildcard:
			add("from " + node.Module + " import *")
		case len(node.Names) > 0:
			add("from " + node.Module + " import " + strings.Join(node.Names, ", "))
		}
	}
	return out
}
