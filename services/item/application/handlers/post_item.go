package handlers

import (
	"net/http"

	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/httpx"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	pkgvalidator "github.com/ghuser/inventorystorage/pkg/validator"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Responder
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services, errs *errhttp.Responder) *PostItemHandler {
	return &PostItemHandler{svc: svc, errs: errs}
}

// Execute creates a new item.
//
//	@Summary		Create item
//	@Description	Creates an item for the tenant. The id is generated when absent.
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			X-Okapi-Tenant	header		string		true	"Tenant"
//	@Param			request			body		ItemRequest	true	"Item"
//	@Success		201				{object}	ItemResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Router			/items [post]
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	t, err := tenant.FromCtx(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	req, ok := pkgvalidator.ValidateRequest[ItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.Create(r.Context(), t, req.toInput())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.Created(w, "/items/"+item.ID.String(), toResponse(item))
}
