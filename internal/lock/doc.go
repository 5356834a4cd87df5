// Package lock enforces that at most one launcher run owns a lock identity
// at a time.
//
// The lock is a plain marker file whose content is the owning process's PID
// in decimal text. A contended acquire reads the marker as a tagged result
// (absent, corrupt, or owned by a PID) and recovers from corrupt markers and
// markers naming dead processes. Only a marker naming a live process blocks
// the acquire.
//
// The scheme is advisory and not transactional. A short-lived flock guard
// (github.com/gofrs/flock) serializes the read-check-write sequence between
// launchers on filesystems that honor flock, but the marker itself is what
// other runs trust.
package lock
