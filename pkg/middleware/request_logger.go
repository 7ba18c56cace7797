package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type HTTPRequestLogger struct {
	logger           *logrus.Logger
	debug            bool
	minErrStatusCode int
}

// NewHTTPRequestLogger logs every request whose status is at least
// minErrStatusCode as an error; with debug on, the rest are logged too.
func NewHTTPRequestLogger(logger *logrus.Logger, debug bool, minErrStatusCode int) *HTTPRequestLogger {
	return &HTTPRequestLogger{
		logger:           logger,
		debug:            debug,
		minErrStatusCode: minErrStatusCode,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (l *HTTPRequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		entry := l.logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rec.statusCode,
			"size":        rec.size,
			"latency_ms":  time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		})

		if rec.statusCode >= l.minErrStatusCode {
			entry.Error("http request")
			return
		}

		if l.debug {
			entry.Info("http request")
		}
	})
}
