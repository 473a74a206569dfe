package extractor

import (
	"fmt"
	"strings"
)

// Span is a contiguous range of source lines. Both bounds are 1-based and inclusive.
type Span struct {
	StartLine int
	EndLine   int
	Text      string
}

// SplitLines splits source text into raw lines.
func SplitLines(source string) []string {
	return strings.Split(source, "\n")
}

// RecoverSpan returns the text of the definition whose def/class keyword is on
// defLine, including the contiguous decorator block directly above it. The end is
// found with the indentation heuristic.
func RecoverSpan(lines []string, defLine int) (Span, error) {
	return RecoverSpanWithEnd(lines, defLine, 0)
}

// RecoverSpanWithEnd is RecoverSpan using treeEnd as the last line when the tree
// provider supplied one (treeEnd > 0).
func RecoverSpanWithEnd(lines []string, defLine, treeEnd int) (Span, error) {
	return RecoverDefinitionSpan(lines, 0, defLine, treeEnd)
}

// RecoverDefinitionSpan is RecoverSpanWithEnd that also takes the first line of
// the decorated definition from the tree provider (0 < treeStart <= defLine).
// Without it the decorator block is found by scanning upward.
func RecoverDefinitionSpan(lines []string, treeStart, defLine, treeEnd int) (Span, error) {
	if defLine < 1 || defLine > len(lines) {
		return Span{}, fmt.Errorf("%w: line %d of %d", ErrInvalidLine, defLine, len(lines))
	}

	start := treeStart
	if start < 1 || start > defLine {
		start = decoratorStart(lines, defLine)
	}
	end := treeEnd
	if end < defLine || end > len(lines) {
		end = statementEnd(lines, defLine, indentWidth(lines[defLine-1]))
	}
	return makeSpan(lines, start, end), nil
}

// RecoverStatementSpan returns the text of a top-level statement starting on line,
// using the same boundary rule as RecoverSpan without the decorator look-back.
func RecoverStatementSpan(lines []string, line, treeEnd int) (Span, error) {
	if line < 1 || line > len(lines) {
		return Span{}, fmt.Errorf("%w: line %d of %d", ErrInvalidLine, line, len(lines))
	}

	end := treeEnd
	if end < line || end > len(lines) {
		end = statementEnd(lines, line, indentWidth(lines[line-1]))
	}
	return makeSpan(lines, line, end), nil
}

// decoratorStart walks upward over the decorator lines directly above defLine.
// A blank line stops the scan.
func decoratorStart(lines []string, defLine int) int {
	start := defLine
	for i := defLine - 1; i >= 1; i-- {
		if !strings.HasPrefix(strings.TrimSpace(lines[i-1]), "@") {
			break
		}
		start = i
	}
	return start
}

// statementEnd returns the last line belonging to the statement on fromLine: the
// line before the first later line at indentation <= indent that starts a new
// definition or assignment, or the last line of the source.
func statementEnd(lines []string, fromLine, indent int) int {
	for i := fromLine + 1; i <= len(lines); i++ {
		line := lines[i-1]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if indentWidth(line) <= indent && startsStatement(trimmed) {
			return i - 1
		}
	}
	return len(lines)
}

func startsStatement(trimmed string) bool {
	switch {
	case strings.HasPrefix(trimmed, "def "),
		strings.HasPrefix(trimmed, "async def "),
		strings.HasPrefix(trimmed, "class "),
		strings.HasPrefix(trimmed, "@"):
		return true
	}
	return strings.Contains(trimmed, "=") && !strings.HasPrefix(trimmed, "#")
}

// makeSpan joins lines [start, end], dropping trailing blank lines.
func makeSpan(lines []string, start, end int) Span {
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	text := strings.Join(lines[start-1:end], "\n")
	return Span{
		StartLine: start,
		EndLine:   end,
		Text:      strings.TrimRight(text, " \t\r\n"),
	}
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
