package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/rs/zerolog"
)

// 警告は処理を止めない。pkg/log.Setup が zerolog へ流す関数を登録する
var (
	warnMu      sync.Mutex
	warnHandler = func(w error) { log.Printf("scigo-warning: %v\n", w) }
	warnZerolog func(w error)
)

// SetWarningHandler replaces the fallback handler used before logging is
// set up. nil drops warnings.
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	warnHandler = handler
}

// SetZerologWarnFunc routes warnings into the structured logger. It lives
// here because pkg/log imports this package.
func SetZerologWarnFunc(fn func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	warnZerolog = fn
}

// Warn reports a non-fatal condition such as a solver that hit max_iter.
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()
	switch {
	case warnZerolog != nil:
		warnZerolog(w)
	case warnHandler != nil:
		warnHandler(w)
	}
}

// ConvergenceWarning: the solver stopped at its iteration limit.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

// NewConvergenceWarning は LogisticRegression.Fit から使われる
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

func (w *ConvergenceWarning) Error() string {
	if w.Message == "" {
		return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter.", w.Algorithm, w.Iterations)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "ConvergenceWarning").
		Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message)
}

// UndefinedMetricWarning: a metric has no meaningful value for the input,
// e.g. AUC on labels of a single class. Result is what was returned instead.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}
