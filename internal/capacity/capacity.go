// Package capacity decides whether a desired layout fits on its target
// before anything is changed.
package capacity

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ReservedHeadroom is kept free on devices for the system itself.
const ReservedHeadroom int64 = 30 * 1024 * 1024

// Exported variables.
var (
	ErrInsufficientSpace = errors.New("insufficient space")
)

// InsufficientSpaceError reports how much a run needed and how much was available.
type InsufficientSpaceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space: need %s, only %s available",
		humanize.IBytes(uint64(max(e.Required, 0))), humanize.IBytes(uint64(max(e.Available, 0))))
}

// Is makes errors.Is(err, ErrInsufficientSpace) match.
func (e *InsufficientSpaceError) Is(target error) bool {
	return target == ErrInsufficientSpace
}

// Check accepts required <= available.
func Check(required, available int64) error {
	if required > available {
		return &InsufficientSpaceError{Required: required, Available: available}
	}

	return nil
}

// LocalAvailable is the space an export may use: what is free plus what the
// previous export occupies, since that will be replaced.
func LocalAvailable(free, previousExport int64) int64 {
	return free + previousExport
}

// RemoteAvailable is the space a device sync may use: free plus the games
// already synced, minus the reserved headroom.
func RemoteAvailable(free, gamesUsed int64) int64 {
	return free + gamesUsed - ReservedHeadroom
}
