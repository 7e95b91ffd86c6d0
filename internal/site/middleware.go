// internal/site/middleware.go
//
// Router middleware that resolves the request Host into a site Record
// once per request and stores it in the context.  Downstream consumers
// read it with FromContext; a nil Record is the "no site" partition, so
// resolution failure degrades instead of rejecting the request.

package site

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/rebound/internal/metrics"
)

// Middleware returns a handler wrapper injecting the resolved site.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec, err := r.Resolve(req.Context(), req.Host)
			if err != nil {
				metrics.SiteResolveErrorsTotal.Inc()
				zap.S().Warnw("site resolution failed", "host", req.Host, "err", err)
			}
			next.ServeHTTP(w, req.WithContext(WithRecord(req.Context(), rec)))
		})
	}
}
