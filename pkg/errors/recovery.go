package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError is a recovered panic. StackTrace is captured at recovery time
// and logged by the HTTP recovery middleware.
type PanicError struct {
	PanicValue interface{}
	StackTrace string
	Operation  string
}

// NewPanicError captures the current stack for a recovered value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{PanicValue: panicValue, StackTrace: string(debug.Stack()), Operation: operation}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String includes the stack trace.
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// Recover must be deferred directly:
//
//	func (s *Service) infer(...) (err error) {
//	    defer Recover(&err, "predict")
//	    ...
//	}
//
// A panic after *err was set wraps that error instead of replacing it.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute runs fn and returns a *PanicError if it panics. Model code
// (Predict, PredictProba, scorers) is always called through it.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
