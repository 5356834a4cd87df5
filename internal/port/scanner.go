package port

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultHost is the loopback address every probe and server bind uses.
const DefaultHost = "127.0.0.1"

// maxPort is the highest valid TCP port number (2^16 - 1).
const maxPort = 65535

// Scanner checks whether specific loopback ports are available.
//
// It asks the operating system's network stack directly (net.Listen) rather
// than parsing /proc/net/* or shelling out to lsof/ss, which may require
// elevated permissions or be missing entirely.
type Scanner struct {
	// host is the address probes bind to. Always loopback for the launcher,
	// since the server it precedes never listens anywhere else.
	host string
}

// NewScanner creates a Scanner that probes DefaultHost.
func NewScanner() *Scanner {
	return &Scanner{host: DefaultHost}
}

// Host returns the address the scanner probes.
func (s *Scanner) Host() string {
	return s.host
}

// IsPortAvailable reports whether a TCP listener can currently be bound to
// host:port. The probe listener is closed before returning, so a true result
// says nothing about the port a moment later.
func (s *Scanner) IsPortAvailable(port int) bool {
	if port < 1 || port > maxPort {
		return false
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// FindAvailablePort scans [startPort, endPort] (inclusive) in ascending order
// and returns the first port that is available.
//
// The deterministic ordering means the lowest free port is always selected,
// which keeps the printed VIEWER_URL predictable across runs.
func (s *Scanner) FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available tcp port found on %s in range %d-%d", s.host, startPort, endPort)
}
