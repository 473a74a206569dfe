package extractor

import "errors"

var (
	// ErrEntityExtraction indicates a single entity could not be extracted.
	// It is recovered locally: the entity is dropped and a Warning recorded.
	ErrEntityExtraction = errors.New("entity extraction failed")

	// ErrNoEntryPoints indicates a run classified no entry point at all.
	ErrNoEntryPoints = errors.New("no entry points found in input files")

	// ErrInvalidLine indicates a line number outside the source.
	ErrInvalidLine = errors.New("line out of range")

	// ErrMalformedParam indicates a parameter the provider could not name.
	ErrMalformedParam = errors.New("malformed parameter")

	// ErrNoMatcher indicates an Extractor was configured without a decorator matcher.
	ErrNoMatcher = errors.New("no entry point decorator matcher configured")
)
