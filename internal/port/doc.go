// Package port implements loopback port scanning and allocation for the
// viewer-launcher.
//
// The Scanner verifies OS-level port availability with a bind-then-release
// probe (net.Listen followed by an immediate Close) on the loopback address.
// The Allocator layers the launcher's two selection policies on top:
//
//   - a preferred port is probed exactly once and never substituted
//   - otherwise the first free port in [rangeStart, rangeStart+maxAttempts)
//     is returned, scanning in ascending order
//
// The probe socket is released before the caller binds the port for real,
// so another process can claim the port in between. This window is a known
// limitation and is not papered over here.
package port
