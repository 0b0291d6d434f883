package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	pkgvalidator "github.com/ghuser/inventorystorage/pkg/validator"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// PutItemHandler handles PUT /items/{itemId} requests.
type PutItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewPutItemHandler returns a PutItemHandler backed by the given services.
func NewPutItemHandler(svc *appsvcs.Services, errs *errhttp.Responder) *PutItemHandler {
	return &PutItemHandler{svc: svc, errs: errs}
}

// Execute replaces the item at itemId, creating it when absent.
//
//	@Summary		Replace item
//	@Description	Full replace. Creates the item at itemId when it does not exist.
//	@Tags			items
//	@Accept			json
//	@Param			X-Okapi-Tenant	header	string		true	"Tenant"
//	@Param			itemId			path	string		true	"Item ID"	format(uuid)
//	@Param			request			body	ItemRequest	true	"Item"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/items/{itemId} [put]
func (h *PutItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}

	req, ok := pkgvalidator.ValidateRequest[ItemRequest](w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Item.Replace(r.Context(), t, id, req.toInput()); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.NoContent(w)
}
