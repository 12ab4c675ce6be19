package errors

import (
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/joe/gamesync/pkg/remote"
)

// Enricher enriches errors with a category and suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher returns an Enricher using the default matcher and suggestions.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

//nolint:gochecknoglobals // compiled once
var (
	pathPatterns = []*regexp.Regexp{
		// "open /games/x.sfrom: permission denied"
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows, either separator
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:[\\/][^\s:]+):`),
	}

	hostPatterns = []*regexp.Regexp{
		// "SSH connection to clover:22 failed"
		regexp.MustCompile(`connection to (\S+) failed`),
		// "dial tcp 192.168.1.20:22: connect: connection refused"
		regexp.MustCompile(`dial tcp (\S+): `),
	}
)

type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich categorizes err. An error that already is, or wraps, an
// ActionableError is returned unchanged. When affectedPath is empty it is
// taken from the message: the device address for connection failures and the
// file path otherwise.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionable ActionableError
	if errors.As(err, &actionable) {
		return err
	}

	msg := err.Error()
	category := e.categorize(err, msg)

	if affectedPath == "" {
		if category == CategoryConnection {
			affectedPath = firstSubmatch(hostPatterns, msg)
		} else {
			affectedPath = firstSubmatch(pathPatterns, msg)
		}
	}

	return &actionableError{
		cause:         err,
		originalError: msg,
		category:      category,
		suggestions:   e.generator.Generate(category, affectedPath),
		affectedPath:  affectedPath,
	}
}

// categorize prefers the message; typed errors decide only what the text
// does not.
func (e *enricher) categorize(err error, msg string) ErrorCategory {
	if category := e.matcher.Match(msg); category != CategoryUnknown {
		return category
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryConnection
	}

	var cmdErr *remote.CommandError
	if errors.As(err, &cmdErr) {
		return CategoryTransport
	}

	return CategoryUnknown
}

func firstSubmatch(patterns []*regexp.Regexp, msg string) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(msg); len(m) > 1 {
			if s := strings.TrimSpace(m[1]); s != "" {
				return s
			}
		}
	}

	return ""
}
