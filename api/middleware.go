package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/attendance-engine/logger"
)

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				logger.FieldRequestID, middleware.GetReqID(r.Context()),
				logger.FieldMethod, r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, status,
				logger.FieldBytes, ww.BytesWritten(),
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
				logger.FieldAddress, r.RemoteAddr,
			}
			switch {
			case status >= 500:
				log.Errorw("Request failed", fields...)
			case status >= 400:
				log.Warnw("Request rejected", fields...)
			default:
				log.Debugw("Request served", fields...)
			}
		})
	}
}

// writeLimiter sheds mutating requests above a process-wide rate.
// A nil limiter lets everything through.
func writeLimiter(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", "Too many write requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
