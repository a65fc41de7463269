package middleware

import (
	"net/http"

	"clipstream-backend/pkg/observability"
)

// Trace opens an X-Ray segment per request and propagates it on the context
func Trace(tracer *observability.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), r.Method+" "+r.URL.Path)
			defer seg.Close(nil)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
