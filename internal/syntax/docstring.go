package syntax

import (
	"strings"
)

// StringLiteralValue strips the prefix and quotes from a Python string literal.
// Escape sequences are left as written.
func StringLiteralValue(literal string) string {
	s := strings.TrimLeft(literal, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// CleanDocstring normalizes docstring indentation: the first line is stripped of
// leading whitespace, the common margin of the remaining lines is removed and
// leading/trailing blank lines are dropped.
func CleanDocstring(doc string) string {
	doc = strings.ReplaceAll(doc, "\t", "        ")
	lines := strings.Split(doc, "\n")

	margin := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		indent := len(line) - len(stripped)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \r")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
