package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger emits one line per request, correlated with the active
// span. Most profile traffic identifies itself with the device header
// rather than a session, so the device id is logged when present.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics := httpsnoop.CaptureMetrics(next, w, r)
		duration := metrics.Duration
		if duration == 0 {
			duration = time.Since(start)
		}

		spanContext := trace.SpanFromContext(r.Context()).SpanContext()

		device := r.Header.Get(DeviceIDHeader)
		if device == "" {
			device = "-"
		}

		log.Printf(
			"request method=%s path=%s status=%d duration=%s device=%s trace_id=%s span_id=%s",
			r.Method,
			r.URL.Path,
			metrics.Code,
			duration,
			device,
			spanContext.TraceID().String(),
			spanContext.SpanID().String(),
		)
	})
}
