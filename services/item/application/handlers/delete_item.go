package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// DeleteItemHandler handles DELETE /items/{itemId} requests.
type DeleteItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewDeleteItemHandler returns a DeleteItemHandler backed by the given services.
func NewDeleteItemHandler(svc *appsvcs.Services, errs *errhttp.Responder) *DeleteItemHandler {
	return &DeleteItemHandler{svc: svc, errs: errs}
}

// Execute deletes a single item.
//
//	@Summary	Delete item
//	@Tags		items
//	@Param		X-Okapi-Tenant	header	string	true	"Tenant"
//	@Param		itemId			path	string	true	"Item ID"	format(uuid)
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/items/{itemId} [delete]
func (h *DeleteItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Item.Delete(r.Context(), t, id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.NoContent(w)
}
