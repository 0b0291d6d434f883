package tenant

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/logger"
)

// Require is a chi middleware that resolves the request tenant and injects it
// into the request context. Requests without a usable tenant get 400 with the
// plain-text body "Tenant Must Be Provided" (or InvalidTenantMessage for a
// token with reserved characters) and never reach the next handler.
//
// After this middleware, handlers can safely call tenant.FromCtx(r.Context()),
// and every record logged with the request context carries the tenant.
func Require(res *Resolver, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := res.Resolve(r.Header)
			if err != nil {
				log.WarnContext(r.Context(), "rejected request without usable tenant",
					"method", r.Method,
					"path", r.URL.Path,
					"header", res.Header(),
					"reason", err,
				)
				httpx.Text(w, http.StatusBadRequest, RejectionMessage(err))
				return
			}

			ctx := logger.ContextWith(WithTenant(r.Context(), t), "tenant", t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
