package middleware

import (
	"net/http"

	"esign-gateway/internal/common/logging"
)

// Recovery converts a handler panic into a 500 response instead of tearing
// down the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Handler panicked", nil,
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.Any("panic", rec),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
