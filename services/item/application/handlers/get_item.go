package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// GetItemHandler handles GET /items/{itemId} requests.
type GetItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewGetItemHandler returns a GetItemHandler backed by the given services.
func NewGetItemHandler(svc *appsvcs.Services, errs *errhttp.Responder) *GetItemHandler {
	return &GetItemHandler{svc: svc, errs: errs}
}

// Execute returns a single item.
//
//	@Summary		Get item
//	@Tags			items
//	@Produce		json
//	@Param			X-Okapi-Tenant	header		string	true	"Tenant"
//	@Param			itemId			path		string	true	"Item ID"	format(uuid)
//	@Success		200				{object}	ItemResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Router			/items/{itemId} [get]
func (h *GetItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.GetByID(r.Context(), t, id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}
