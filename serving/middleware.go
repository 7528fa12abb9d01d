package serving

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type ctxKey int

const requestIDKey ctxKey = iota

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID accepts a caller-supplied X-Request-Id or generates a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	// 暗黙の 200
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// AccessLog logs one line per request. The endpoint is the matched mux
// pattern, empty when nothing matched.
func AccessLog(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("request",
				log.RequestIDKey, RequestIDFromContext(r.Context()),
				log.MethodKey, r.Method,
				log.PathKey, r.URL.Path,
				log.EndpointKey, r.Pattern,
				log.StatusKey, rec.status,
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
		})
	}
}

// Recovery turns a handler panic into a 500 JSON error. When the handler
// had already started the response only the log line is written.
func Recovery(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					perr := errors.NewPanicError(r.Method+" "+r.URL.Path, v)
					logger.Error("panic recovered", perr,
						log.RequestIDKey, RequestIDFromContext(r.Context()),
						log.StacktraceAttrKey, perr.StackTrace,
						"response_started", rec.wroteHeader,
					)
					if !rec.wroteHeader {
						writeError(w, http.StatusInternalServerError, "internal server error")
					}
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
