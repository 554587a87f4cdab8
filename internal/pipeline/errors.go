package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindConnection means the session to the target could not be established.
	KindConnection Kind = iota + 1
	// KindExecution means a database statement failed.
	KindExecution
	// KindTransfer means a file copy failed.
	KindTransfer
	// KindCommand means a remote command exited non-zero or could not run.
	KindCommand
	// KindNotFound reports an absence in diagnostic steps. Never fatal on its own.
	KindNotFound
	// KindCanceled means the caller cancelled the run between steps.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindExecution:
		return "ExecutionError"
	case KindTransfer:
		return "TransferError"
	case KindCommand:
		return "CommandError"
	case KindNotFound:
		return "NotFoundError"
	case KindCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified failure. The underlying message is always preserved.
type Error struct {
	Kind Kind
	// Op names the step or operation that failed.
	Op string
	// Output holds captured diagnostics (command output tail), if any.
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ConnectionError wraps err as KindConnection.
func ConnectionError(op string, err error) *Error { return NewError(KindConnection, op, err) }

// ExecutionError wraps err as KindExecution.
func ExecutionError(op string, err error) *Error { return NewError(KindExecution, op, err) }

// TransferError wraps err as KindTransfer.
func TransferError(op string, err error) *Error { return NewError(KindTransfer, op, err) }

// CommandError wraps err as KindCommand and keeps the command output.
func CommandError(op string, err error, output string) *Error {
	e := NewError(KindCommand, op, err)
	e.Output = output
	return e
}

// NotFoundError wraps err as KindNotFound.
func NotFoundError(op string, err error) *Error { return NewError(KindNotFound, op, err) }

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
