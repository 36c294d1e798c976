package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
)

// Metrics records request counts and latency keyed by the matched chi route pattern.
func Metrics(recorder *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			recorder.Observe(r.Method, route, rec.Status(), time.Since(start))
		})
	}
}
