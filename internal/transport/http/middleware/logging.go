package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"nomina/internal/transport/http/api"
)

// RequestRecorder receives one observation per completed request.
type RequestRecorder interface {
	Record(status int, duration time.Duration)
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
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Logger writes one structured line per request. recorder may be nil.
func Logger(log *zap.Logger, recorder RequestRecorder) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			if recorder != nil {
				recorder.Record(rec.status, elapsed)
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int64("durationMs", elapsed.Milliseconds()),
				zap.String("requestId", GetRequestID(r.Context())),
			}
			switch {
			case rec.status >= http.StatusInternalServerError:
				log.Error("request", fields...)
			case rec.status >= http.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
		})
	}
}

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Error("panic recovered",
					zap.String("panic", fmt.Sprint(rvr)),
					zap.String("requestId", GetRequestID(r.Context())),
					zap.ByteString("stack", debug.Stack()),
				)
				api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
