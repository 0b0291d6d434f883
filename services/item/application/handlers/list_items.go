package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// ListItemsHandler handles GET /items requests.
type ListItemsHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewListItemsHandler returns a ListItemsHandler backed by the given services.
func NewListItemsHandler(svc *appsvcs.Services, errs *errhttp.Responder) *ListItemsHandler {
	return &ListItemsHandler{svc: svc, errs: errs}
}

// Execute returns every item of the tenant.
//
//	@Summary		List items
//	@Tags			items
//	@Produce		json
//	@Param			X-Okapi-Tenant	header		string	true	"Tenant"
//	@Success		200				{object}	ItemCollection
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Router			/items [get]
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	items, err := h.svc.Item.List(r.Context(), t)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	resp := ItemCollection{Items: make([]ItemResponse, len(items)), TotalRecords: len(items)}
	for i, item := range items {
		resp.Items[i] = toResponse(item)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
