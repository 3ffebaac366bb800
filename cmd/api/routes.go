package main

import (
	"net/http"

	"github.com/hafizmfadli/go-catalog/internal/access"
	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	anyStaff := access.HasRole(data.RoleDeveloper, data.RoleAdmin)
	developers := access.HasRole(data.RoleDeveloper)

	router.HandlerFunc(http.MethodGet, "/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/admin/post", app.require(anyStaff, app.createEntryHandler))
	router.HandlerFunc(http.MethodGet, "/admin/get", app.require(anyStaff, app.listEntriesHandler))
	router.HandlerFunc(http.MethodPatch, "/admin/update/:id", app.require(developers, app.updateEntryHandler))
	router.HandlerFunc(http.MethodDelete, "/admin/delete/:id", app.require(developers, app.deleteEntryHandler))
	router.HandlerFunc(http.MethodPatch, "/admin/watched/:id", app.require(anyStaff, app.toggleWatchedHandler))

	return app.recoverPanic(app.enableCORS(app.rateLimit(app.authenticate(router))))
}
