// Package target describes the external endpoints an opspipe run operates against.
//
// A Target is either a Database (a managed SQL database reached over an
// encrypted connection) or a Host (a remote machine reached over SSH). Targets
// are plain values resolved from configuration before a run starts and are
// never mutated afterwards.
package target
