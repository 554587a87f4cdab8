// Package remote holds the operation steps that run against a host target:
// file transfer, remote commands and service restart with a start fallback.
//
// Steps are typed on Executor rather than on the concrete SSH session so the
// deploy pipeline can be exercised against a mock in tests.
package remote
