package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"home-scraper/utils"
)

// LoggerMiddleware logs one line per request, tagged with chi's request id.
func LoggerMiddleware(logger *utils.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.With(
				"request_id", middleware.GetReqID(r.Context()),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			).Info("[api] %s %s", r.Method, r.URL.Path)
		})
	}
}
