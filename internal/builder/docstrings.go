package builder

import "context"

// DocstringImprover rewrites the docstring of an entry point before it is emitted.
type DocstringImprover interface {
	Improve(ctx context.Context, name, docstring, signature string) (string, error)
}

// PreserveDocstrings is the DocstringImprover that keeps docstrings unchanged.
type PreserveDocstrings struct{}

// Improve returns docstring as is.
func (PreserveDocstrings) Improve(_ context.Context, _, docstring, _ string) (string, error) {
	return docstring, nil
}
