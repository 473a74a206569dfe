package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidMarker indicates a marker namespace or verb that is not an identifier
	ErrInvalidMarker = errors.New("invalid marker decorator")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyInclude indicates no include patterns
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrEmptyOutputDir indicates a missing output directory
	ErrEmptyOutputDir = errors.New("empty output directory")

	// ErrInvalidPort indicates a server port outside 1-65534
	ErrInvalidPort = errors.New("invalid server port")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateMarker(&cfg.Marker); err != nil {
		errs = append(errs, err)
	}

	if cfg.Extraction.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Extraction.Workers))
	}

	if len(cfg.Paths.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}

	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}

	// client port is server port + 1, so the last port is unusable
	if cfg.Server.Port <= 0 || cfg.Server.Port >= 65535 {
		errs = append(errs, fmt.Errorf("%w: must be between 1 and 65534, got %d", ErrInvalidPort, cfg.Server.Port))
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateMarker(cfg *MarkerConfig) error {
	var errs []error

	if !identifierPattern.MatchString(cfg.Namespace) {
		errs = append(errs, fmt.Errorf("%w: namespace must be an identifier, got '%s'", ErrInvalidMarker, cfg.Namespace))
	}
	if !identifierPattern.MatchString(cfg.Verb) {
		errs = append(errs, fmt.Errorf("%w: verb must be an identifier, got '%s'", ErrInvalidMarker, cfg.Verb))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateOutput(cfg *OutputConfig) error {
	var errs []error

	format := strings.ToLower(cfg.Format)
	if format != "json" && format != "yaml" {
		errs = append(errs, fmt.Errorf("%w: must be 'json' or 'yaml', got '%s'", ErrInvalidFormat, cfg.Format))
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		errs = append(errs, fmt.Errorf("%w: dir is required", ErrEmptyOutputDir))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
