package syntax

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonProvider parses Python source with tree-sitter.
type PythonProvider struct {
	// Strict rejects sources containing syntax errors instead of recovering.
	Strict bool

	language *sitter.Language
}

// NewPythonProvider creates a new Python syntax tree provider.
func NewPythonProvider() *PythonProvider {
	return &PythonProvider{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Parse parses a Python module into its top-level statements.
func (p *PythonProvider) Parse(ctx context.Context, source []byte) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: source is not valid UTF-8", ErrUnparsable)
	}

	lang := p.language
	if lang == nil {
		lang = sitter.NewLanguage(python.Language())
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	// Assignments left without a value swallow the following statements during
	// error recovery. Record them, clear their line and parse again until none
	// remain. Line numbers are unchanged by clearing.
	var incomplete []*Node
	for {
		tree := parser.Parse(source, nil)
		if tree == nil {
			return nil, fmt.Errorf("%w: parser returned no tree", ErrUnparsable)
		}
		root := tree.RootNode()
		if p.Strict && root.HasError() {
			line := firstErrorLine(root)
			tree.Close()
			return nil, fmt.Errorf("%w: syntax error near line %d", ErrUnparsable, line)
		}

		found := incompleteAssignments(root, source)
		if len(found) == 0 {
			module := buildModule(root, source, incomplete)
			tree.Close()
			return module, nil
		}
		tree.Close()

		if p.Strict {
			return nil, fmt.Errorf("%w: assignment without value on line %d", ErrUnparsable, found[0].Line)
		}
		incomplete = append(incomplete, found...)
		source = clearLines(source, found)
	}
}

// buildModule converts the top-level statements of root. Incomplete assignments
// found in earlier passes are merged back in line order.
func buildModule(root *sitter.Node, source []byte, incomplete []*Node) *Module {
	firstIncomplete := 0
	for _, n := range incomplete {
		if firstIncomplete == 0 || n.Line < firstIncomplete {
			firstIncomplete = n.Line
		}
	}

	module := &Module{}
	first := true
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if first {
			first = false
			if line, _ := nodeLines(child); firstIncomplete == 0 || line < firstIncomplete {
				module.Docstring = statementDocstring(child, source)
			}
		}
		if node := convertStatement(child, source); node != nil {
			module.Body = append(module.Body, node)
		}
	}

	if len(incomplete) > 0 {
		module.Body = append(module.Body, incomplete...)
		sort.SliceStable(module.Body, func(i, j int) bool {
			return module.Body[i].Line < module.Body[j].Line
		})
	}
	return module
}

// convertStatement maps a top-level tree-sitter statement onto a Node.
func convertStatement(n *sitter.Node, source []byte) *Node {
	switch n.Kind() {
	case "function_definition":
		return convertFunction(n, source, nil)
	case "class_definition":
		return convertClass(n, source, nil)
	case "decorated_definition":
		decorators := extractDecorators(n, source)
		def := n.ChildByFieldName("definition")
		if def == nil {
			return otherNode(n)
		}
		var node *Node
		switch def.Kind() {
		case "function_definition":
			node = convertFunction(def, source, decorators)
		case "class_definition":
			node = convertClass(def, source, decorators)
		default:
			return otherNode(n)
		}
		node.StartLine, _ = nodeLines(n)
		return node
	case "expression_statement":
		if expr := firstNamedChild(n); expr != nil && expr.Kind() == "assignment" {
			return convertAssignment(n, expr, source)
		}
		return otherNode(n)
	case "import_statement":
		return convertImport(n, source)
	case "import_from_statement", "future_import_statement":
		return convertFromImport(n, source)
	default:
		return otherNode(n)
	}
}

func otherNode(n *sitter.Node) *Node {
	start, end := nodeLines(n)
	return &Node{Kind: KindOther, Line: start, EndLine: end}
}

// convertFunction extracts a function definition. The body is not descended into.
func convertFunction(n *sitter.Node, source []byte, decorators []Decorator) *Node {
	start, end := nodeLines(n)
	node := &Node{
		Kind:       KindFunction,
		Name:       extractNodeText(n.ChildByFieldName("name"), source),
		Line:       start,
		StartLine:  start,
		EndLine:    end,
		Decorators: decorators,
		Params:     extractParams(n.ChildByFieldName("parameters"), source),
		Returns:    extractNodeText(n.ChildByFieldName("return_type"), source),
		Docstring:  blockDocstring(n.ChildByFieldName("body"), source),
	}
	if first := n.Child(0); first != nil && first.Kind() == "async" {
		node.Async = true
	}
	return node
}

// convertClass extracts a class definition and its immediate methods.
func convertClass(n *sitter.Node, source []byte, decorators []Decorator) *Node {
	start, end := nodeLines(n)
	body := n.ChildByFieldName("body")
	node := &Node{
		Kind:       KindClass,
		Name:       extractNodeText(n.ChildByFieldName("name"), source),
		Line:       start,
		StartLine:  start,
		EndLine:    end,
		Decorators: decorators,
		Docstring:  blockDocstring(body, source),
	}
	if body == nil {
		return node
	}

	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_definition":
			node.Body = append(node.Body, convertFunction(child, source, nil))
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def != nil && def.Kind() == "function_definition" {
				method := convertFunction(def, source, extractDecorators(child, source))
				method.StartLine, _ = nodeLines(child)
				node.Body = append(node.Body, method)
			}
		}
	}
	return node
}

// extractDecorators reads the decorator list of a decorated_definition.
func extractDecorators(n *sitter.Node, source []byte) []Decorator {
	var decorators []Decorator
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() != "decorator" {
			continue
		}
		expr := firstNamedChild(child)
		if expr == nil {
			continue
		}

		d := Decorator{Text: extractNodeText(expr, source)}
		if expr.Kind() == "call" {
			d.Call = true
			fn := expr.ChildByFieldName("function")
			switch {
			case fn == nil:
			case fn.Kind() == "attribute":
				if obj := fn.ChildByFieldName("object"); obj != nil && obj.Kind() == "identifier" {
					d.Object = extractNodeText(obj, source)
				}
				d.Attr = extractNodeText(fn.ChildByFieldName("attribute"), source)
			case fn.Kind() == "identifier":
				d.Attr = extractNodeText(fn, source)
			}
		}
		decorators = append(decorators, d)
	}
	return decorators
}

// extractParams converts a parameters node. Separators ("*", "/") are skipped;
// anything unrecognized yields a Param with an empty name.
func extractParams(n *sitter.Node, source []byte) []Param {
	if n == nil {
		return nil
	}

	var params []Param
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "comment", "keyword_separator", "positional_separator":
			continue
		case "identifier", "tuple_pattern":
			params = append(params, Param{Name: extractNodeText(child, source)})
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, Param{Name: extractNodeText(firstNamedChild(child), source), Variadic: true})
		case "typed_parameter":
			p := Param{Type: extractNodeText(child.ChildByFieldName("type"), source)}
			if inner := firstNamedChild(child); inner != nil {
				switch inner.Kind() {
				case "identifier":
					p.Name = extractNodeText(inner, source)
				case "list_splat_pattern", "dictionary_splat_pattern":
					p.Name = extractNodeText(firstNamedChild(inner), source)
					p.Variadic = true
				}
			}
			params = append(params, p)
		case "default_parameter", "typed_default_parameter":
			params = append(params, Param{
				Name: extractNodeText(child.ChildByFieldName("name"), source),
				Type: extractNodeText(child.ChildByFieldName("type"), source),
			})
		default:
			params = append(params, Param{})
		}
	}
	return params
}

// convertAssignment extracts the simple-identifier targets of a (possibly chained)
// assignment statement.
func convertAssignment(stmt, assign *sitter.Node, source []byte) *Node {
	start, end := nodeLines(stmt)
	node := &Node{
		Kind:       KindAssignment,
		Line:       start,
		EndLine:    end,
		Annotation: extractNodeText(assign.ChildByFieldName("type"), source),
	}

	cur := assign
	for cur != nil {
		if left := cur.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
			node.Targets = append(node.Targets, extractNodeText(left, source))
		}
		right := cur.ChildByFieldName("right")
		if right != nil && right.Kind() == "assignment" {
			cur = right
			continue
		}
		node.HasValue = right != nil && !right.IsMissing() && !right.IsError()
		break
	}

	if len(node.Targets) > 0 {
		node.Name = node.Targets[0]
	}
	return node
}

// danglingAssignment matches a top-level line binding a name with "=" and nothing
// after it but an optional comment.
var danglingAssignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*([^=#]*?))?\s*=\s*(?:#.*)?$`)

// incompleteAssignments reports top-level assignments whose value is missing.
// Such a statement either parses as an assignment whose value starts on a later
// line, or ends up inside an ERROR node.
func incompleteAssignments(root *sitter.Node, source []byte) []*Node {
	var found []*Node
	seen := make(map[int]bool)
	add := func(n *Node) {
		if !seen[n.Line] {
			seen[n.Line] = true
			found = append(found, n)
		}
	}

	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Kind() == "expression_statement" {
			if assign := firstNamedChild(child); assign != nil && assign.Kind() == "assignment" && missingValue(assign, source) {
				node := convertAssignment(child, assign, source)
				node.HasValue = false
				node.Incomplete = true
				node.EndLine = node.Line
				if len(node.Targets) > 1 {
					// later targets belong to the statements that were swallowed
					node.Targets = node.Targets[:1]
				}
				add(node)
				continue
			}
		}
		if child.IsError() || child.HasError() {
			for _, n := range scanDanglingLines(child, source) {
				add(n)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Line < found[j].Line })
	return found
}

// missingValue reports whether any "=" of a (possibly chained) assignment lacks a
// value on its own logical line.
func missingValue(assign *sitter.Node, source []byte) bool {
	for cur := assign; cur != nil; {
		eq := childOfKind(cur, "=")
		if eq == nil {
			// annotation only
			return false
		}
		right := cur.ChildByFieldName("right")
		if right == nil || right.IsMissing() || right.IsError() {
			return true
		}
		if hasBareNewline(source[eq.EndByte():right.StartByte()]) {
			return true
		}
		if right.Kind() != "assignment" {
			return false
		}
		cur = right
	}
	return false
}

// scanDanglingLines finds dangling assignment lines at column 0 inside n.
func scanDanglingLines(n *sitter.Node, source []byte) []*Node {
	start, end := nodeLines(n)
	lines := bytes.Split(source, []byte("\n"))

	var found []*Node
	for line := start; line <= end && line <= len(lines); line++ {
		text := strings.TrimRight(string(lines[line-1]), "\r")
		m := danglingAssignment.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		found = append(found, &Node{
			Kind:       KindAssignment,
			Name:       m[1],
			Line:       line,
			EndLine:    line,
			Targets:    []string{m[1]},
			Annotation: strings.TrimSpace(m[2]),
			Incomplete: true,
		})
	}
	return found
}

// hasBareNewline reports a line break not escaped by a trailing backslash.
func hasBareNewline(gap []byte) bool {
	for i, b := range gap {
		if b != '\n' {
			continue
		}
		j := i - 1
		if j >= 0 && gap[j] == '\r' {
			j--
		}
		if j < 0 || gap[j] != '\\' {
			return true
		}
	}
	return false
}

// clearLines returns a copy of source with the content of the nodes' first lines
// removed. Line breaks are kept so line numbers do not move.
func clearLines(source []byte, nodes []*Node) []byte {
	drop := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		drop[n.Line] = true
	}

	lines := bytes.Split(source, []byte("\n"))
	out := make([]byte, 0, len(source))
	for i, line := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		if !drop[i+1] {
			out = append(out, line...)
		}
	}
	return out
}

func childOfKind(n *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func convertImport(n *sitter.Node, source []byte) *Node {
	start, end := nodeLines(n)
	node := &Node{Kind: KindImport, Line: start, EndLine: end}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if name := importName(n.NamedChild(i), source); name != "" {
			node.Names = append(node.Names, name)
		}
	}
	return node
}

func convertFromImport(n *sitter.Node, source []byte) *Node {
	start, end := nodeLines(n)
	node := &Node{Kind: KindImportFrom, Line: start, EndLine: end}

	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode != nil {
		node.Module = extractNodeText(moduleNode, source)
	} else if n.Kind() == "future_import_statement" {
		node.Module = "__future__"
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		if child.Kind() == "wildcard_import" {
			node.Wildcard = true
			continue
		}
		if name := importName(child, source); name != "" {
			node.Names = append(node.Names, name)
		}
	}
	return node
}

// importName renders "name" or "name as alias" for an imported name node.
func importName(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "dotted_name", "identifier":
		return extractNodeText(n, source)
	case "aliased_import":
		name := extractNodeText(n.ChildByFieldName("name"), source)
		alias := extractNodeText(n.ChildByFieldName("alias"), source)
		if alias == "" {
			return name
		}
		return name + " as " + alias
	}
	return ""
}

// blockDocstring returns the cleaned docstring of a function or class body.
func blockDocstring(block *sitter.Node, source []byte) string {
	if block == nil {
		return ""
	}
	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		return statementDocstring(child, source)
	}
	return ""
}

// statementDocstring returns the docstring if stmt is a bare string expression.
func statementDocstring(stmt *sitter.Node, source []byte) string {
	if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return ""
	}
	str := stmt.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return CleanDocstring(StringLiteralValue(extractNodeText(str, source)))
}

// nodeLines returns the 1-based first and last line of a node. A node ending at
// column 0 of a later row ends on the previous line.
func nodeLines(n *sitter.Node) (int, int) {
	start := n.StartPosition()
	end := n.EndPosition()
	endLine := int(end.Row) + 1
	if end.Column == 0 && end.Row > start.Row {
		endLine = int(end.Row)
	}
	return int(start.Row) + 1, endLine
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPosition().Row) + 1
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}
