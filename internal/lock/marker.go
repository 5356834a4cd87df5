package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// MarkerState tags what was found at a lock marker path.
type MarkerState int

const (
	// MarkerAbsent means no marker file exists.
	MarkerAbsent MarkerState = iota

	// MarkerCorrupt means a file exists but does not hold a positive PID.
	MarkerCorrupt

	// MarkerOwned means the file names an owning PID. Whether that process
	// is still alive is a separate question.
	MarkerOwned
)

// String returns a short name for the state, used in log output.
func (s MarkerState) String() string {
	switch s {
	case MarkerAbsent:
		return "absent"
	case MarkerCorrupt:
		return "corrupt"
	case MarkerOwned:
		return "owned"
	default:
		return fmt.Sprintf("MarkerState(%d)", int(s))
	}
}

// Marker is the parsed content of a lock marker.
type Marker struct {
	State MarkerState

	// PID is the owner when State is MarkerOwned, zero otherwise.
	PID int
}

// ParseMarker interprets raw marker bytes. Surrounding whitespace is ignored
// so markers written with a trailing newline by older tools still parse.
func ParseMarker(data []byte) Marker {
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return Marker{State: MarkerCorrupt}
	}
	return Marker{State: MarkerOwned, PID: pid}
}

// ReadMarker reads and parses the marker at path. A missing file is reported
// as MarkerAbsent, not as an error; only unexpected I/O failures return one.
func ReadMarker(path string) (Marker, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304 - path derived from the content root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Marker{State: MarkerAbsent}, nil
		}
		return Marker{}, fmt.Errorf("read lock marker %s: %w", path, err)
	}
	return ParseMarker(data), nil
}
