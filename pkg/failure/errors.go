package failure

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrAborted is the failure recorded when a step body leaves through
// runtime.Goexit, for example testing.T.FailNow.
var ErrAborted = errors.New("xteps: step aborted by runtime.Goexit")

// ArgumentError reports an invalid argument passed to an engine operation.
type ArgumentError struct {
	Op      string
	Arg     string
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("xteps: invalid argument %s for %s: %s", e.Arg, e.Op, e.Message)
}

// NewArgumentError creates a new ArgumentError.
func NewArgumentError(op, arg, message string) *ArgumentError {
	return &ArgumentError{Op: op, Arg: arg, Message: message}
}

// NilArgument creates an ArgumentError for an absent argument.
func NilArgument(op, arg string) *ArgumentError {
	return NewArgumentError(op, arg, arg+" is nil")
}

// IsArgumentError checks if the error, or its primary failure, is an ArgumentError.
func IsArgumentError(err error) bool {
	var argErr *ArgumentError
	return errors.As(err, &argErr)
}

// PanicError records a recovered panic as a failure value.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError creates a PanicError with the current goroutine stack.
func NewPanicError(value any) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("xteps: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanicError checks if the error, or its primary failure, is a PanicError.
func IsPanicError(err error) bool {
	var panicErr *PanicError
	return errors.As(err, &panicErr)
}

// Call invokes fn and converts a panic into a *PanicError.
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return fn()
}
