package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// DeleteItemsHandler handles DELETE /items requests.
type DeleteItemsHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewDeleteItemsHandler returns a DeleteItemsHandler backed by the given services.
func NewDeleteItemsHandler(svc *appsvcs.Services, errs *errhttp.Responder) *DeleteItemsHandler {
	return &DeleteItemsHandler{svc: svc, errs: errs}
}

// Execute deletes every item of the tenant.
//
//	@Summary	Delete all items
//	@Tags		items
//	@Param		X-Okapi-Tenant	header	string	true	"Tenant"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/items [delete]
func (h *DeleteItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if err := h.svc.Item.DeleteAll(r.Context(), t); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.NoContent(w)
}
