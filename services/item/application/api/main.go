package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/inventorystorage/pkg/app"
	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/errhttp"
	"github.com/ghuser/inventorystorage/pkg/telemetry"
	"github.com/ghuser/inventorystorage/pkg/tenant"
	"github.com/ghuser/inventorystorage/services/item/application/handlers"
	appsvcs "github.com/ghuser/inventorystorage/services/item/application/services"
)

// ItemRoutes registers item endpoints on the provided chi router. Every route
// requires a tenant; requests without one are rejected before any handler runs.
func ItemRoutes(r chi.Router, a *app.Application) error {
	svcs, err := appsvcs.New(a)
	if err != nil {
		return fmt.Errorf("item services: %w", err)
	}
	errs := errhttp.NewResponder(a.Logger, a.Config.Environment == config.EnvProduction)

	r.Group(func(r chi.Router) {
		r.Use(tenant.Require(a.Tenants, a.Logger))
		r.Use(telemetry.SentryTenantTag())

		r.Route("/items", func(r chi.Router) {
			r.Get("/", handlers.NewListItemsHandler(svcs, errs).Execute)
			r.Post("/", handlers.NewPostItemHandler(svcs, errs).Execute)
			r.Delete("/", handlers.NewDeleteItemsHandler(svcs, errs).Execute)

			r.Get("/{itemId}", handlers.NewGetItemHandler(svcs, errs).Execute)
			r.Put("/{itemId}", handlers.NewPutItemHandler(svcs, errs).Execute)
			r.Delete("/{itemId}", handlers.NewDeleteItemHandler(svcs, errs).Execute)
		})
	})
	return nil
}
