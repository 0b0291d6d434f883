package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/inventorystorage/pkg/httpx"
	pkgvalidator "github.com/ghuser/inventorystorage/pkg/validator"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
)

// NamedRef is a reference rendered by name, used for status and location.
type NamedRef struct {
	Name string `json:"name" validate:"max=255" example:"Available"`
} // @name NamedRef

// ItemRequest is the request body for POST /items and PUT /items/{itemId}.
type ItemRequest struct {
	ID             string    `json:"id,omitempty"             validate:"omitempty,identifier"               example:"0b96a642-5e7f-452d-9cae-9cee66c9a892"`
	InstanceID     string    `json:"instanceId"               validate:"required,identifier"                example:"bd9a7d35-d4c6-4ab8-8b58-b4e0a4ab1f9b"`
	Title          string    `json:"title"                    validate:"required,notblank,printable,max=255" example:"Nod"`
	Barcode        string    `json:"barcode,omitempty"        validate:"omitempty,printable,max=255"        example:"565578437802"`
	Status         *NamedRef `json:"status,omitempty"`
	MaterialTypeID string    `json:"materialTypeId,omitempty" validate:"omitempty,identifier"`
	Location       *NamedRef `json:"location,omitempty"`
} // @name ItemRequest

// ItemResponse is a single item as returned to clients.
type ItemResponse struct {
	ID             uuid.UUID  `json:"id"                       example:"0b96a642-5e7f-452d-9cae-9cee66c9a892"`
	InstanceID     uuid.UUID  `json:"instanceId"               example:"bd9a7d35-d4c6-4ab8-8b58-b4e0a4ab1f9b"`
	Title          string     `json:"title"                    example:"Nod"`
	Barcode        string     `json:"barcode,omitempty"        example:"565578437802"`
	Status         *NamedRef  `json:"status,omitempty"`
	MaterialTypeID *uuid.UUID `json:"materialTypeId,omitempty"`
	Location       *NamedRef  `json:"location,omitempty"`
} // @name ItemResponse

// ItemCollection is the response body for GET /items.
type ItemCollection struct {
	Items        []ItemResponse `json:"items"`
	TotalRecords int            `json:"totalRecords" example:"1"`
} // @name ItemCollection

// ErrorResponse is returned on all JSON error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"item not found"`
} // @name ErrorResponse

// toInput converts a validated request into service input.
func (req *ItemRequest) toInput() appsvcs.ItemInput {
	in := appsvcs.ItemInput{
		InstanceID: uuid.MustParse(req.InstanceID),
		Title:      req.Title,
		Barcode:    req.Barcode,
	}
	if req.ID != "" {
		in.ID = uuid.MustParse(req.ID)
	}
	if req.MaterialTypeID != "" {
		in.MaterialTypeID = uuid.MustParse(req.MaterialTypeID)
	}
	if req.Status != nil {
		in.Status = req.Status.Name
	}
	if req.Location != nil {
		in.Location = req.Location.Name
	}
	return in
}

func toResponse(item *models.Item) ItemResponse {
	resp := ItemResponse{
		ID:         item.ID,
		InstanceID: item.InstanceID,
		Title:      item.Title.String(),
		Barcode:    item.Barcode,
	}
	if item.Status != "" {
		resp.Status = &NamedRef{Name: item.Status}
	}
	if item.MaterialTypeID != uuid.Nil {
		id := item.MaterialTypeID
		resp.MaterialTypeID = &id
	}
	if item.Location != "" {
		resp.Location = &NamedRef{Name: item.Location}
	}
	return resp
}

// pathItemID parses the {itemId} URL parameter, writing a 400 when malformed
// or nil.
func pathItemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pkgvalidator.ParseIdentifier(chi.URLParam(r, "itemId"))
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "item id must be a non-nil UUID")
		return uuid.Nil, false
	}
	return id, true
}
