package syncengine

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joe/gamesync/pkg/signature"
)

// ProtectFilter keeps target entries matching any of its glob patterns from
// ever being deleted. Matching is case-insensitive against the slash-separated
// path relative to the sync root.
type ProtectFilter struct {
	patterns []string
}

// NewProtectFilter validates and stores patterns. No patterns protect nothing.
func NewProtectFilter(patterns ...string) (*ProtectFilter, error) {
	normalized := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		lower := strings.ToLower(pattern)
		if !doublestar.ValidatePattern(lower) {
			return nil, fmt.Errorf("invalid protect pattern %q", pattern) //nolint:err113 // validation error with value
		}

		normalized = append(normalized, lower)
	}

	return &ProtectFilter{patterns: normalized}, nil
}

// Protects reports whether relativePath matches a pattern.
func (f *ProtectFilter) Protects(relativePath string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}

	normalizedPath := strings.ToLower(relativePath)

	for _, pattern := range f.patterns {
		if matched, err := doublestar.Match(pattern, normalizedPath); err == nil && matched {
			return true
		}
	}

	return false
}

// Split separates entries into those that may be deleted and those protected.
func (f *ProtectFilter) Split(entries []*signature.Entry) (deletable, protected []*signature.Entry) {
	deletable = make([]*signature.Entry, 0, len(entries))

	for _, e := range entries {
		if f.Protects(e.Path) {
			protected = append(protected, e)
			continue
		}

		deletable = append(deletable, e)
	}

	return deletable, protected
}
