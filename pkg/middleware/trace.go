package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

const TraceIDHeader = "X-Trace-Id"

// HTTPResponseTraceInjection exposes the request's trace id to the client.
func HTTPResponseTraceInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := trace.SpanContextFromContext(r.Context())
		if sc.HasTraceID() {
			w.Header().Set(TraceIDHeader, sc.TraceID().String())
		}

		next.ServeHTTP(w, r)
	})
}
