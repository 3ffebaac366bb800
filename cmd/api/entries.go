package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/hafizmfadli/go-catalog/internal/uploader"
	"github.com/hafizmfadli/go-catalog/internal/validator"
)

var posterOptions = uploader.Options{Folder: uploader.PosterFolder, ResourceType: "image"}

// createEntryHandler for the "POST /admin/post" endpoint.
func (app *application) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        *string      `json:"name"`
		About       *string      `json:"about"`
		Poster      *string      `json:"poster"`
		Link        *string      `json:"link"`
		Season      *data.Season `json:"season"`
		Format      *string      `json:"format"`
		Industry    *string      `json:"industry"`
		ReleaseDate *data.Date   `json:"releaseDate"`
		Genres      data.Genres  `json:"genre"`
		Rating      *float64     `json:"rating"`
		UploadedBy  *string      `json:"uploadedBy"`
		Collection  *string      `json:"collection"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	entry := &data.CatalogEntry{
		Name:        input.Name,
		About:       input.About,
		Link:        input.Link,
		Season:      input.Season,
		Format:      input.Format,
		Industry:    input.Industry,
		ReleaseDate: input.ReleaseDate,
		Genres:      input.Genres,
		Rating:      input.Rating,
		UploadedBy:  input.UploadedBy,
		Collection:  input.Collection,
	}

	if entry.UploadedBy == nil {
		name := app.contextGetCaller(r).Name
		entry.UploadedBy = &name
	}

	v := validator.New()

	data.ValidatePoster(v, input.Poster)
	if data.ValidateEntry(v, entry); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if entry.Name != nil && entry.ReleaseDate != nil {
		_, err := app.models.Entries.FindDuplicate(*entry.Name, *entry.ReleaseDate, uuid.Nil)
		switch {
		case err == nil:
			app.duplicateEntryResponse(w, r, *entry.Name, *entry.ReleaseDate)
			return
		case !errors.Is(err, data.ErrRecordNotFound):
			app.persistenceFailureResponse(w, r, err)
			return
		}
	}

	if input.Poster != nil {
		result, err := app.uploader.Upload(r.Context(), *input.Poster, posterOptions)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		entry.PosterURL = &result.SecureURL
	}

	err = app.models.Entries.Insert(entry)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEntry):
			app.duplicateEntryResponse(w, r, *entry.Name, *entry.ReleaseDate)
		case errors.Is(err, idhash.ErrMissingSecret):
			app.serverErrorResponse(w, r, err)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	if app.config.notify.recipient != "" {
		app.notifyEntryAdded(entry)
	}

	message := fmt.Sprintf("The '%s' added successfully.", entry.DisplayName())
	err = app.writeJSON(w, http.StatusOK, envelope{"data": entry, "message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// notifyEntryAdded mails the configured recipient in the background.
func (app *application) notifyEntryAdded(entry *data.CatalogEntry) {
	tmplData := map[string]any{
		"ID":          entry.ID.String(),
		"Name":        entry.DisplayName(),
		"UploadedBy":  deref(entry.UploadedBy),
		"Format":      deref(entry.Format),
		"ReleaseDate": "",
		"PosterURL":   deref(entry.PosterURL),
	}
	if entry.ReleaseDate != nil {
		tmplData["ReleaseDate"] = entry.ReleaseDate.String()
	}

	app.background(func() {
		err := app.mailer.Send(app.config.notify.recipient, "entry_added.tmpl", tmplData)
		if err != nil {
			app.logger.PrintError(err, map[string]string{"entry_id": entry.ID.String()})
		}
	})
}

// listEntriesHandler for the "GET /admin/get" endpoint.
func (app *application) listEntriesHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	filters := data.Filters{
		Search: app.readString(qs, "search", ""),
	}

	v := validator.New()
	if data.ValidateFilters(v, filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	entries, err := app.models.Entries.Search(filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	matching := ""
	if filters.Filtered() {
		matching = fmt.Sprintf(" matching '%s'", filters.Search)
	}
	message := fmt.Sprintf("The MovieSeries fetched%s, sorted by latest release date.", matching)

	err = app.writeJSON(w, http.StatusOK, envelope{"data": entries, "totalData": len(entries), "message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateEntryHandler for the "PATCH /admin/update/:id" endpoint.
func (app *application) updateEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	entry, err := app.models.Entries.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	var input data.EntryUpdate

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Apply(entry)

	v := validator.New()

	data.ValidatePoster(v, input.Poster)
	if data.ValidateEntry(v, entry); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if input.Name != nil && input.ReleaseDate != nil {
		_, err := app.models.Entries.FindDuplicate(*input.Name, *input.ReleaseDate, entry.ID)
		switch {
		case err == nil:
			app.duplicateEntryResponse(w, r, *input.Name, *input.ReleaseDate)
			return
		case !errors.Is(err, data.ErrRecordNotFound):
			app.persistenceFailureResponse(w, r, err)
			return
		}
	}

	if input.Poster != nil {
		result, err := app.uploader.Upload(r.Context(), *input.Poster, posterOptions)
		if err != nil {
			app.imageUploadFailedResponse(w, r, err)
			return
		}
		entry.PosterURL = &result.SecureURL
	}

	err = app.models.Entries.Update(entry)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		case errors.Is(err, data.ErrDuplicateEntry):
			app.duplicateEntryResponse(w, r, entry.DisplayName(), *entry.ReleaseDate)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	message := fmt.Sprintf("The '%s' updated successfully.", entry.DisplayName())
	err = app.writeJSON(w, http.StatusOK, envelope{"data": entry, "message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteEntryHandler for the "DELETE /admin/delete/:id" endpoint.
func (app *application) deleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	name, err := app.models.Entries.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	message := fmt.Sprintf("The '%s' deleted successfully.", name)
	err = app.writeJSON(w, http.StatusOK, envelope{"message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// toggleWatchedHandler for the "PATCH /admin/watched/:id" endpoint.
func (app *application) toggleWatchedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	entry, err := app.models.Entries.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	entry.ToggleWatched(time.Now())

	err = app.models.Entries.Update(entry)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.persistenceFailureResponse(w, r, err)
		}
		return
	}

	state := "Unwatched"
	if entry.Watched {
		state = "Watched"
	}

	message := fmt.Sprintf("The '%s' marked as %s", entry.DisplayName(), state)
	err = app.writeJSON(w, http.StatusOK, envelope{"data": entry, "message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
