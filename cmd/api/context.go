package main

import (
	"context"
	"net/http"

	"github.com/hafizmfadli/go-catalog/internal/data"
)

type contextKey string

const callerContextKey = contextKey("caller")

// contextSetCaller returns a copy of r carrying caller.
func (app *application) contextSetCaller(r *http.Request, caller *data.Caller) *http.Request {
	ctx := context.WithValue(r.Context(), callerContextKey, caller)
	return r.WithContext(ctx)
}

// contextGetCaller returns the caller set by authenticate. Every request
// passes through authenticate, so a missing value is a wiring bug.
func (app *application) contextGetCaller(r *http.Request) *data.Caller {
	caller, ok := r.Context().Value(callerContextKey).(*data.Caller)
	if !ok {
		panic("missing caller value in request context")
	}
	return caller
}
