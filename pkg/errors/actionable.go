// Package errors turns sync failures into messages a user can act on.
//
// An error from any layer (manifest loading, the SSH connection, a transport,
// the capacity guard) is matched to an ErrorCategory and given a short list of
// suggestions:
//
//	enriched := errors.NewEnricher().Enrich(err, "")
//	fmt.Fprintln(os.Stderr, enriched)
//	fmt.Fprintln(os.Stderr, errors.FormatSuggestions(enriched))
//
// The enriched error wraps the original, so errors.Is and errors.As keep
// working on sentinels such as syncengine.ErrTransferFailed.
package errors

import (
	"errors"
	"strings"
)

// ErrorCategory represents the kind of failure.
type ErrorCategory string

// Exported constants.
const (
	CategoryCapacity   ErrorCategory = "capacity"
	CategoryConnection ErrorCategory = "connection"
	CategoryCopy       ErrorCategory = "copy"
	CategoryDelete     ErrorCategory = "delete"
	CategoryDiskSpace  ErrorCategory = "disk_space"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategoryTransport  ErrorCategory = "transport"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ActionableError is an error with suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	// AffectedPath is the file, directory or device address the error is about.
	AffectedPath() string
}

// NewActionableError creates an ActionableError that wraps nothing.
func NewActionableError(
	originalError string,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		originalError: originalError,
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// FormatSuggestions renders the suggestions of err, or of the first
// ActionableError it wraps, as an indented bullet list. It returns "" when
// there is nothing to suggest.
func FormatSuggestions(err error) string {
	var actionable ActionableError
	if !errors.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	lines := make([]string, len(suggestions))
	for i, s := range suggestions {
		lines[i] = "  • " + s
	}

	return strings.Join(lines, "\n")
}

type actionableError struct {
	cause         error
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
}

func (e *actionableError) AffectedPath() string    { return e.affectedPath }
func (e *actionableError) Category() ErrorCategory { return e.category }
func (e *actionableError) Error() string           { return e.originalError }
func (e *actionableError) OriginalError() string   { return e.originalError }
func (e *actionableError) Suggestions() []string   { return e.suggestions }

// Unwrap returns the enriched error.
func (e *actionableError) Unwrap() error { return e.cause }
