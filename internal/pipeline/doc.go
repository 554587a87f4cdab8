// Package pipeline runs an ordered list of operation steps against one target.
//
// # Core Types
//
// A [Connector] opens exactly one connection handle for a run. A [Step] is one
// unit of work executed against that handle. The [Runner] opens the handle,
// executes steps strictly in order, stops at the first failure and closes the
// handle exactly once on every exit path. Progress is reported through an
// [Observer]; the run ends with an [Outcome].
//
// # State Machine
//
//	NotStarted -> Connecting -> Running(i) -> Succeeded | Failed(i) -> Closed
//
// A connection failure moves Connecting straight to Failed and then Closed
// without a handle to release. Cancellation is checked between steps.
//
// # Errors
//
// Failures are reported as [*Error] values carrying a [Kind]: connection,
// execution, transfer, command, not-found or canceled.
package pipeline
