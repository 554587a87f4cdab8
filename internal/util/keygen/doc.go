// Package keygen generates Ed25519 SSH key pairs.
//
// Private keys are produced in OpenSSH PEM format and public keys in
// authorized_keys format. The SSH connection tests use it for both client
// and in-process server host keys.
package keygen
