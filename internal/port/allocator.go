package port

import (
	"fmt"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

const (
	// DefaultRangeStart is the first port scanned when no port is preferred.
	DefaultRangeStart = 8080

	// DefaultMaxAttempts is how many consecutive ports are scanned.
	DefaultMaxAttempts = 200
)

// Allocator selects the single loopback port a run binds its server to.
//
// It holds a Scanner for the actual OS probes. A run calls Allocate exactly
// once; the result is not re-validated afterwards.
type Allocator struct {
	scanner *Scanner
}

// NewAllocator creates a new Allocator with the given Scanner.
// The scanner must not be nil.
func NewAllocator(scanner *Scanner) *Allocator {
	return &Allocator{scanner: scanner}
}

// Allocate picks a port.
//
// Algorithm:
//  1. If preferred > 0, probe exactly that port. Success returns it; failure
//     returns an error wrapping model.ErrPortUnavailable. No scanning happens,
//     so a caller asking for port P never silently receives another port.
//  2. Otherwise scan rangeStart .. rangeStart+maxAttempts-1 in order and
//     return the first port whose probe succeeds.
//  3. If the whole range is occupied, return an error wrapping
//     model.ErrNoFreePort.
func (a *Allocator) Allocate(preferred, rangeStart, maxAttempts int) (int, error) {
	if preferred != 0 {
		if preferred < 1 || preferred > maxPort {
			return 0, fmt.Errorf("preferred port %d out of range (1-%d): %w", preferred, maxPort, model.ErrPortUnavailable)
		}
		if !a.scanner.IsPortAvailable(preferred) {
			return 0, fmt.Errorf("preferred port %d on %s: %w", preferred, a.scanner.Host(), model.ErrPortUnavailable)
		}
		return preferred, nil
	}

	if maxAttempts < 1 {
		return 0, fmt.Errorf("invalid scan length %d: %w", maxAttempts, model.ErrNoFreePort)
	}
	if rangeStart < 1 || rangeStart > maxPort {
		return 0, fmt.Errorf("scan start %d out of range (1-%d): %w", rangeStart, maxPort, model.ErrNoFreePort)
	}

	// Clamp the scan so it never walks past the 16-bit port space.
	rangeEnd := rangeStart + maxAttempts - 1
	if rangeEnd > maxPort {
		rangeEnd = maxPort
	}

	found, err := a.scanner.FindAvailablePort(rangeStart, rangeEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrNoFreePort, err)
	}
	return found, nil
}
