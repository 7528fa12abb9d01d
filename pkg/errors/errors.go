// Package errors holds the error types shared by the estimators, the
// prediction API and the offline summarizer.
//
// Every constructor attaches a stack trace through cockroachdb/errors, and
// the types implement zerolog.LogObjectMarshaler so pkg/log can emit them as
// structured fields. The API maps FeatureCountError to 422 and everything
// else from inference to 500.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const msgPrefix = "scigo: "

var (
	// ErrEmptyData: no rows (or no columns) where data was required.
	ErrEmptyData = New("empty data")

	// ErrUnknownModelKind: an artifact names a kind nobody registered.
	ErrUnknownModelKind = New("unknown model kind")
)

// FeatureCountError: a feature vector whose length differs from the
// model's schema. The message is returned verbatim in API responses.
type FeatureCountError struct {
	Expected int
	Got      int
}

// NewFeatureCountError creates a FeatureCountError.
func NewFeatureCountError(expected, got int) error {
	return errors.WithStack(&FeatureCountError{Expected: expected, Got: got})
}

func (e *FeatureCountError) Error() string {
	return fmt.Sprintf("Expected %d features, got %d", e.Expected, e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *FeatureCountError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "FeatureCountError").Int("expected", e.Expected).Int("got", e.Got)
}

// NotFittedError: Predict (or export) before Fit / ImportWeights.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf(msgPrefix+"%s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NotFittedError").Str("model_name", e.ModelName).Str("method", e.Method)
}

// DimensionError: a matrix with the wrong number of rows (Axis 0) or
// columns (Axis 1).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf(msgPrefix+"%s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "DimensionError").
		Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("axis_name", e.axisName())
}

// ValidationError: a config value, static file field or model parameter
// outside its allowed range.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError creates a ValidationError.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(msgPrefix+"validation failed for '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValidationError").
		Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

// ValueError: an argument that is well-typed but unusable (nil weights,
// a single class).
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

func (e *ValueError) Error() string { return msgPrefix + e.Op + ": " + e.Message }

// ModelError wraps a failure inside an estimator or artifact operation.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

// NewModelError creates a ModelError; err may be nil.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return msgPrefix + e.Op + ": " + e.Kind
	}
	return fmt.Sprintf(msgPrefix+"%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// cockroachdb/errors への委譲

func Is(err, target error) bool             { return errors.Is(err, target) }
func As(err error, target interface{}) bool { return errors.As(err, target) }
func Wrap(err error, msg string) error      { return errors.Wrap(err, msg) }
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
func New(msg string) error                          { return errors.New(msg) }
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }
func WithStack(err error) error                     { return errors.WithStack(err) }
