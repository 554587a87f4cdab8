// Package ssh provides the connection handle for remote host targets.
//
// A [Session] wraps one authenticated golang.org/x/crypto/ssh client. It runs
// shell commands with context support and uploads files atomically (write to
// a temporary sibling, verify the byte count, rename into place).
//
// Host keys are always verified according to the target's policy: a
// known_hosts file, a pinned SHA256 fingerprint, or, only when configured
// explicitly, no verification at all. A policy that cannot be satisfied fails
// the connection.
package ssh
