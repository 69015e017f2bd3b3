package middleware

import (
	"log/slog"
	"net/http"

	"github.com/glowcart/storefront-search/pkg/logger"
)

// RequestLogger stores a logger enriched with the request's correlation ID,
// caller subject and trace IDs in the context. Handlers read it back with
// logger.FromContext.
//
// Mount it after RequestLogging and Tracing. Routes behind Auth get the
// subject only when RequestLogger runs after Auth as well.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
