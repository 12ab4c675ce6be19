package signature

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// StatTimeLayout matches the `stat -c %y` output used by the remote listing.
const StatTimeLayout = "2006-01-02 15:04:05.999999999 -0700"

// ParseListing reads one "<relative-path> <size-bytes> <modified-time>" record
// per line. The modified time is either `stat %y` text or Unix seconds. Paths
// may contain spaces, so fields are taken from the right.
func ParseListing(r io.Reader) (*Set, error) {
	set := NewSet()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd // long paths

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		sig, err := ParseListingLine(line)
		if err != nil {
			return nil, fmt.Errorf("listing line %d: %w", lineNo, err)
		}

		set.AddSignature(sig)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	return set, nil
}

// ParseListingLine parses a single listing record.
func ParseListingLine(line string) (Signature, error) {
	// stat %y: "<path> <size> 2024-01-02 03:04:05.000000000 +0000"
	if head, tail, ok := splitRight(line, 4); ok { //nolint:mnd // size + date + time + zone
		if modTime, err := time.Parse(StatTimeLayout, strings.Join(tail[1:], " ")); err == nil {
			return build(head, tail[0], modTime)
		}
	}

	// "<path> <size> <unix-seconds>"
	head, tail, ok := splitRight(line, 2) //nolint:mnd // size + seconds
	if !ok {
		return Signature{}, fmt.Errorf("malformed record %q", line) //nolint:err113 // carries the record
	}

	seconds, err := strconv.ParseInt(tail[1], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed modification time in %q: %w", line, err)
	}

	return build(head, tail[0], time.Unix(seconds, 0))
}

// FormatListingLine renders a signature in the Unix-seconds listing form.
func FormatListingLine(sig Signature) string {
	return fmt.Sprintf("./%s %d %d", sig.Path, sig.Size, sig.ModTime.Unix())
}

func build(relPath, sizeField string, modTime time.Time) (Signature, error) {
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed size %q: %w", sizeField, err)
	}

	if relPath == "" {
		return Signature{}, fmt.Errorf("empty path") //nolint:err113,perfsprint // record validation
	}

	return New(relPath, size, modTime), nil
}

// splitRight splits off the last n space-separated fields.
func splitRight(line string, n int) (string, []string, bool) {
	tail := make([]string, n)
	rest := line

	for i := n - 1; i >= 0; i-- {
		idx := strings.LastIndexByte(rest, ' ')
		if idx < 0 {
			return "", nil, false
		}

		tail[i] = rest[idx+1:]
		rest = rest[:idx]
	}

	return rest, tail, true
}
