// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
)

// Responder writes error responses and logs server-side failures.
type Responder struct {
	log        logger.Logger
	production bool
}

// NewResponder returns a Responder. In production, 5xx messages are replaced
// with the generic status text.
func NewResponder(log logger.Logger, production bool) *Responder {
	if log == nil {
		log = logger.Discard()
	}
	return &Responder{log: log, production: production}
}

// Write maps err to a status code and writes the response. A missing or
// invalid tenant is answered in plain text with the fixed tenant message;
// everything else uses the JSON {"error": ...} shape. 5xx errors are logged
// with the request's tenant.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrBlankTenant) || errors.Is(err, tenant.ErrInvalidTenant) {
		httpx.Text(w, http.StatusBadRequest, tenant.RejectionMessage(err))
		return
	}

	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		t, _ := tenant.FromCtx(r.Context())
		rs.log.ErrorContext(r.Context(), "request failed",
			"error", err,
			"tenant", t,
			"method", r.Method,
			"path", r.URL.Path,
		)
	}
	httpx.JSONError(w, status, httpx.SafeError(err, status, rs.production))
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, itemdomain.ErrItemNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, itemdomain.ErrItemAlreadyExists):
		return http.StatusConflict // 409
	case errors.Is(err, itemdomain.ErrInvalidItem),
		errors.Is(err, itemdomain.ErrIDMismatch),
		errors.Is(err, itemdomain.ErrInvalidCriterion):
		return http.StatusBadRequest // 400
	case errors.Is(err, itemdomain.ErrAmbiguousResult):
		return http.StatusInternalServerError // 500, identifiers must be unique
	default:
		return http.StatusInternalServerError // 500
	}
}
