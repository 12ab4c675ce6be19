package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Categories are checked in order; the first match wins.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []categoryPatterns{
			{CategoryCapacity, []string{
				"insufficient space",
			}},
			{CategoryConnection, []string{
				"connection refused",
				"no route to host",
				"i/o timeout",
				"unable to authenticate",
				"handshake failed",
				"knownhosts",
				"host key",
				"connection reset",
			}},
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
				"read-only file system",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"file not found",
				"path does not exist",
				"manifest does not exist",
			}},
			{CategoryDelete, []string{
				"directory not empty",
				"cannot remove",
			}},
			{CategoryCopy, []string{
				"short write",
				"size does not match signature",
				"input/output error",
				"i/o error",
			}},
			{CategoryTransport, []string{
				"no transport available",
				"transfer ended before all bytes",
				"ftp connection",
				"exited with status",
			}},
		},
	}
}

type categoryPatterns struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []categoryPatterns
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.category
			}
		}
	}

	// No match found
	return CategoryUnknown
}
