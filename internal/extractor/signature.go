package extractor

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/mcpforge/internal/syntax"
)

// BuildSignature renders a parameter list and return annotation as
// "(a: float, b) -> float". Annotations are emitted as written; defaults are not.
// Variadic parameters are emitted by name only.
func BuildSignature(params []syntax.Param, returns string) (string, error) {
	parts := make([]string, 0, len(params))
	for i, p := range params {
		if p.Name == "" {
			return "", fmt.Errorf("%w: parameter %d has no name", ErrMalformedParam, i+1)
		}
		if p.Type == "" {
			parts = append(parts, p.Name)
			continue
		}
		parts = append(parts, p.Name+": "+p.Type)
	}

	sig := "(" + strings.Join(parts, ", ") + ")"
	if returns != "" {
		sig += " -> " + returns
	}
	return sig, nil
}

// dropSelf removes a leading parameter literally named "self".
func dropSelf(params []syntax.Param) []syntax.Param {
	if len(params) > 0 && params[0].Name == "self" && !params[0].Variadic {
		return params[1:]
	}
	return params
}
