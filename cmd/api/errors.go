package main

import (
	"fmt"
	"net/http"

	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/hafizmfadli/go-catalog/internal/jsonlog"
)

// logError is generic helper for logging error message with the request
// that caused it.
func (app *application) logError(r *http.Request, err error) {
	app.requestLogger(r).PrintError(err, nil)
}

// requestLogger returns a child logger tagged with the request method and URL.
func (app *application) requestLogger(r *http.Request) *jsonlog.Logger {
	return app.logger.With(map[string]string{
		"request_method": r.Method,
		"request_url":    r.URL.String(),
	})
}

// errorResponse sends message under the "error" key with the given status.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{
		"error": message,
	}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs err and sends a 500 Internal Server Error.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

// persistenceFailureResponse logs err and sends a 400 Bad Request without
// leaking the store error to the client.
func (app *application) persistenceFailureResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "the request could not be completed, please try again"
	app.errorResponse(w, r, http.StatusBadRequest, message)
}

// notFoundResponse sends a 404 Not Found. Missing entries and malformed ids
// both end up here.
func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

// methodNotAllowedResponse sends a 405 Method Not Allowed.
func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request with err's text, which must be
// safe to show to the client.
func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends the field errors map with 400 Bad Request.
func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusBadRequest, errors)
}

// duplicateEntryResponse sends 409 Conflict naming the entry that already
// holds name and releaseDate.
func (app *application) duplicateEntryResponse(w http.ResponseWriter, r *http.Request, name string, releaseDate data.Date) {
	message := fmt.Sprintf("The '%s' already exists for this release date %s.", name, releaseDate)
	app.errorResponse(w, r, http.StatusConflict, message)
}

// editConflictResponse sends a 409 Conflict when the entry changed between
// read and write.
func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	app.errorResponse(w, r, http.StatusConflict, message)
}

// imageUploadFailedResponse sends 400 Bad Request with both a summary and
// the collaborator's error text.
func (app *application) imageUploadFailedResponse(w http.ResponseWriter, r *http.Request, err error) {
	env := envelope{
		"message": "Image upload failed",
		"error":   err.Error(),
	}

	if werr := app.writeJSON(w, http.StatusBadRequest, env, nil); werr != nil {
		app.logError(r, werr)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// rateLimitExceededResponse sends a 429 Too Many Requests.
func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	message := "rate limit exceeded"
	app.errorResponse(w, r, http.StatusTooManyRequests, message)
}

// invalidAuthenticationTokenResponse sends a 401 Unauthorized for a
// malformed, unknown or revoked token.
func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	// Remind the client that we expect a bearer token.
	w.Header().Set("WWW-Authenticate", "Bearer")

	message := "invalid or missing authentication token"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

// authenticationRequiredResponse sends a 401 Unauthorized to an anonymous
// caller on a protected route.
func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request, reason string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, reason)
}

// notPermittedResponse sends a 403 Forbidden when the caller's role is not
// allowed on the route.
func (app *application) notPermittedResponse(w http.ResponseWriter, r *http.Request, reason string) {
	app.errorResponse(w, r, http.StatusForbidden, reason)
}
