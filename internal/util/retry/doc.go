// Package retry provides exponential backoff retry logic for transient failures.
//
// [Do] retries an operation with a configurable number of retries, initial
// delay, maximum delay and multiplier. The pipeline runner uses it to
// re-attempt connection acquisition; errors wrapped with [Fatal] stop the
// loop immediately.
package retry
