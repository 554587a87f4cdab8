// Package testing provides mocks, builders and helpers shared by package tests.
//
//   - MockExecutor: testify mock of a remote shell session
//   - ConfigBuilder: fluent builder for configuration values
//
// Import it under an alias to avoid clashing with the standard library:
//
//	import testutil "github.com/imamik/opspipe/internal/testing"
package testing
