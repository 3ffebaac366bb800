package main

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryFixture struct {
	app   *testApp
	ts    *testServer
	dev   string
	admin string
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()

	app := newTestApplication(t)
	return &entryFixture{
		app:   app,
		ts:    newTestServer(t, app.routes()),
		dev:   app.newKey(t, "dev-bot", data.RoleDeveloper),
		admin: app.newKey(t, "admin-bot", data.RoleAdmin),
	}
}

func (f *entryFixture) create(t *testing.T, name, releaseDate string) string {
	t.Helper()

	body := fmt.Sprintf(`{"name": %q, "releaseDate": %q}`, name, releaseDate)
	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, body)
	require.Equal(t, http.StatusOK, rs.status, rs.body)
	return rs.dataObject(t)["id"].(string)
}

func TestCreateEntry(t *testing.T) {
	f := newEntryFixture(t)

	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.admin, `{
		"name": "Dune",
		"releaseDate": "2021-10-22",
		"format": "movie",
		"industry": "Hollywood",
		"genre": ["sci-fi", "drama"],
		"season": 1,
		"rating": 8.1
	}`)

	require.Equal(t, http.StatusOK, rs.status, rs.body)
	assert.Equal(t, "The 'Dune' added successfully.", rs.body["message"])

	entry := rs.dataObject(t)
	assert.Equal(t, "Dune", entry["name"])
	assert.Equal(t, "2021-10-22", entry["releaseDate"])
	assert.Equal(t, false, entry["watched"])
	assert.Nil(t, entry["watchedAt"])
	assert.Nil(t, entry["collection"])
	assert.Nil(t, entry["posterUrl"])
	assert.Equal(t, "1", entry["season"])
	assert.Equal(t, "admin-bot", entry["uploadedBy"])
	assert.Equal(t, []any{"sci-fi", "drama"}, entry["genre"])
	assert.NotContains(t, entry, "hashedId")
	assert.NotContains(t, entry, "version")

	_, err := uuid.Parse(entry["id"].(string))
	assert.NoError(t, err)

	assert.Empty(t, f.app.uploader.inputs)
}

func TestCreateEntryDuplicateIgnoresCase(t *testing.T) {
	f := newEntryFixture(t)
	f.create(t, "Dune", "2021-10-22")

	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, `{"name": "dune", "releaseDate": "2021-10-22"}`)
	assert.Equal(t, http.StatusConflict, rs.status)
	assert.Equal(t, "The 'dune' already exists for this release date 2021-10-22.", rs.body["error"])

	// Another date is fine.
	f.create(t, "Dune", "1984-12-14")

	f.create(t, "Amélie", "2001-04-25")
	rs = f.ts.do(t, http.MethodPost, "/admin/post", f.dev, `{"name": "AMÉLIE", "releaseDate": "2001-04-25"}`)
	assert.Equal(t, http.StatusConflict, rs.status)
}

func TestCreateEntryGenresShape(t *testing.T) {
	f := newEntryFixture(t)

	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, `{"name": "Dune"}`)
	require.Equal(t, http.StatusOK, rs.status, rs.body)
	assert.Equal(t, []any{}, rs.dataObject(t)["genre"])

	list := f.ts.do(t, http.MethodGet, "/admin/get", f.dev, "")
	assert.Equal(t, []any{}, list.dataList(t)[0]["genre"])
}

func TestCreateEntryUploadsPoster(t *testing.T) {
	f := newEntryFixture(t)

	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, `{"name": "Arrival", "poster": "https://example.com/arrival.jpg"}`)
	require.Equal(t, http.StatusOK, rs.status, rs.body)

	assert.Equal(t, f.app.uploader.url, rs.dataObject(t)["posterUrl"])
	require.Len(t, f.app.uploader.inputs, 1)
	assert.Equal(t, "https://example.com/arrival.jpg", f.app.uploader.inputs[0])
	assert.Equal(t, "posters", f.app.uploader.opts[0].Folder)
}

func TestCreateEntryUploadFailure(t *testing.T) {
	f := newEntryFixture(t)
	f.app.uploader.err = errors.New("image upload failed: Invalid image file")

	rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, `{"name": "Arrival", "poster": "data:text/plain,hi"}`)
	assert.Equal(t, http.StatusBadRequest, rs.status)
	assert.Equal(t, "image upload failed: Invalid image file", rs.body["error"])

	list := f.ts.do(t, http.MethodGet, "/admin/get", f.dev, "")
	assert.EqualValues(t, 0, list.body["totalData"])
}

func TestCreateEntryRejectsBadInput(t *testing.T) {
	f := newEntryFixture(t)

	tests := []struct {
		name string
		body string
		key  string
	}{
		{"unknown field", `{"name": "Dune", "watched": true}`, ""},
		{"bad date", `{"name": "Dune", "releaseDate": "22/10/2021"}`, ""},
		{"empty body", ``, ""},
		{"two values", `{"name": "Dune"}{"name": "Dune"}`, ""},
		{"blank name", `{"name": "  "}`, "name"},
		{"rating range", `{"name": "Dune", "rating": 12}`, "rating"},
		{"bad link", `{"name": "Dune", "link": "dune"}`, "link"},
		{"blank poster", `{"name": "Dune", "poster": ""}`, "poster"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := f.ts.do(t, http.MethodPost, "/admin/post", f.dev, tt.body)
			assert.Equal(t, http.StatusBadRequest, rs.status)
			if tt.key != "" {
				errs, ok := rs.body["error"].(map[string]any)
				require.True(t, ok, rs.body)
				assert.Contains(t, errs, tt.key)
			}
		})
	}
}

func TestCreateEntryNotifies(t *testing.T) {
	f := newEntryFixture(t)
	f.app.config.notify.recipient = "editor@example.com"

	f.create(t, "Dune", "2021-10-22")
	f.app.wg.Wait()

	f.app.mailer.mu.Lock()
	defer f.app.mailer.mu.Unlock()
	require.Len(t, f.app.mailer.sent, 1)
	assert.Equal(t, "editor@example.com", f.app.mailer.sent[0].recipient)
	assert.Equal(t, "entry_added.tmpl", f.app.mailer.sent[0].templateFile)
}

func TestListEntries(t *testing.T) {
	f := newEntryFixture(t)

	f.create(t, "Arrival", "2016-11-11")
	f.create(t, "Dune", "2021-10-22")
	f.create(t, "Blade Runner", "1982-06-25")
	f.create(t, "Dune: Part Two", "2024-03-01")

	rs := f.ts.do(t, http.MethodGet, "/admin/get", f.admin, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.EqualValues(t, 4, rs.body["totalData"])
	assert.Equal(t, "The MovieSeries fetched, sorted by latest release date.", rs.body["message"])

	var dates []string
	for _, e := range rs.dataList(t) {
		dates = append(dates, e["releaseDate"].(string))
		assert.NotContains(t, e, "hashedId")
	}
	assert.Equal(t, []string{"2024-03-01", "2021-10-22", "2016-11-11", "1982-06-25"}, dates)

	rs = f.ts.do(t, http.MethodGet, "/admin/get?search=du", f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.EqualValues(t, 2, rs.body["totalData"])
	assert.Equal(t, "The MovieSeries fetched matching 'du', sorted by latest release date.", rs.body["message"])
	list := rs.dataList(t)
	assert.Equal(t, "Dune: Part Two", list[0]["name"])
	assert.Equal(t, "Dune", list[1]["name"])
}

func TestListEntriesSearchIsLiteral(t *testing.T) {
	f := newEntryFixture(t)

	f.create(t, "a.b*c", "2001-01-01")
	f.create(t, "axbbbc", "2002-02-02")

	rs := f.ts.do(t, http.MethodGet, "/admin/get?search=a.b%2A", f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)

	list := rs.dataList(t)
	require.Len(t, list, 1)
	assert.Equal(t, "a.b*c", list[0]["name"])
}

func TestListEntriesSearchKeepsWhitespace(t *testing.T) {
	f := newEntryFixture(t)

	f.create(t, "Ab", "2001-01-01")
	f.create(t, "A b", "2002-02-02")

	rs := f.ts.do(t, http.MethodGet, "/admin/get?search=%20b", f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.Equal(t, "The MovieSeries fetched matching ' b', sorted by latest release date.", rs.body["message"])

	list := rs.dataList(t)
	require.Len(t, list, 1)
	assert.Equal(t, "A b", list[0]["name"])

	rs = f.ts.do(t, http.MethodGet, "/admin/get?search=b%20", f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.EqualValues(t, 0, rs.body["totalData"])

	rs = f.ts.do(t, http.MethodGet, "/admin/get?search=%20", f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.EqualValues(t, 1, rs.body["totalData"])
	assert.Equal(t, "The MovieSeries fetched matching ' ', sorted by latest release date.", rs.body["message"])
}

func TestUpdateEntry(t *testing.T) {
	f := newEntryFixture(t)

	duneID := f.create(t, "Dune", "2021-10-22")
	arrivalID := f.create(t, "Arrival", "2016-11-11")

	t.Run("to another entry's pair", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+arrivalID, f.dev, `{"name": "DUNE", "releaseDate": "2021-10-22"}`)
		assert.Equal(t, http.StatusConflict, rs.status)
		assert.Equal(t, "The 'DUNE' already exists for this release date 2021-10-22.", rs.body["error"])
	})

	t.Run("to its own pair", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.dev, `{"name": "Dune", "releaseDate": "2021-10-22", "about": "Spice."}`)
		require.Equal(t, http.StatusOK, rs.status, rs.body)
		assert.Equal(t, "The 'Dune' updated successfully.", rs.body["message"])
		assert.Equal(t, "Spice.", rs.dataObject(t)["about"])
	})

	t.Run("partial fields keep the rest", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.dev, `{"collection": "Villeneuve"}`)
		require.Equal(t, http.StatusOK, rs.status, rs.body)
		entry := rs.dataObject(t)
		assert.Equal(t, "Villeneuve", entry["collection"])
		assert.Equal(t, "Spice.", entry["about"])
		assert.Equal(t, "2021-10-22", entry["releaseDate"])
	})

	t.Run("poster", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.dev, `{"poster": "https://example.com/dune.jpg"}`)
		require.Equal(t, http.StatusOK, rs.status, rs.body)
		assert.Equal(t, f.app.uploader.url, rs.dataObject(t)["posterUrl"])
		assert.Equal(t, "image", f.app.uploader.opts[len(f.app.uploader.opts)-1].ResourceType)
	})

	t.Run("poster upload failure", func(t *testing.T) {
		f.app.uploader.err = errors.New("image upload failed: timeout")
		defer func() { f.app.uploader.err = nil }()

		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.dev, `{"poster": "https://example.com/dune.jpg"}`)
		assert.Equal(t, http.StatusBadRequest, rs.status)
		assert.Equal(t, "Image upload failed", rs.body["message"])
		assert.Equal(t, "image upload failed: timeout", rs.body["error"])
	})

	t.Run("watched is not patchable", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.dev, `{"watched": true}`)
		assert.Equal(t, http.StatusBadRequest, rs.status)
	})

	t.Run("missing and malformed ids", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+uuid.NewString(), f.dev, `{"about": "x"}`)
		assert.Equal(t, http.StatusNotFound, rs.status)

		rs = f.ts.do(t, http.MethodPatch, "/admin/update/not-an-id", f.dev, `{"about": "x"}`)
		assert.Equal(t, http.StatusNotFound, rs.status)
	})

	t.Run("admin is forbidden", func(t *testing.T) {
		rs := f.ts.do(t, http.MethodPatch, "/admin/update/"+duneID, f.admin, `{"about": "x"}`)
		assert.Equal(t, http.StatusForbidden, rs.status)
	})
}

func TestDeleteEntry(t *testing.T) {
	f := newEntryFixture(t)
	id := f.create(t, "Dune", "2021-10-22")

	rs := f.ts.do(t, http.MethodDelete, "/admin/delete/"+id, f.admin, "")
	assert.Equal(t, http.StatusForbidden, rs.status)

	rs = f.ts.do(t, http.MethodDelete, "/admin/delete/"+id, f.dev, "")
	require.Equal(t, http.StatusOK, rs.status)
	assert.Equal(t, "The 'Dune' deleted successfully.", rs.body["message"])

	rs = f.ts.do(t, http.MethodDelete, "/admin/delete/"+id, f.dev, "")
	assert.Equal(t, http.StatusNotFound, rs.status)

	rs = f.ts.do(t, http.MethodDelete, "/admin/delete/123", f.dev, "")
	assert.Equal(t, http.StatusNotFound, rs.status)
}

func TestToggleWatched(t *testing.T) {
	f := newEntryFixture(t)
	id := f.create(t, "Dune", "2021-10-22")

	rs := f.ts.do(t, http.MethodPatch, "/admin/watched/"+id, f.admin, "")
	require.Equal(t, http.StatusOK, rs.status, rs.body)
	assert.Equal(t, "The 'Dune' marked as Watched", rs.body["message"])
	entry := rs.dataObject(t)
	assert.Equal(t, true, entry["watched"])
	assert.NotNil(t, entry["watchedAt"])

	rs = f.ts.do(t, http.MethodPatch, "/admin/watched/"+id, f.dev, "")
	require.Equal(t, http.StatusOK, rs.status, rs.body)
	assert.Equal(t, "The 'Dune' marked as Unwatched", rs.body["message"])
	entry = rs.dataObject(t)
	assert.Equal(t, false, entry["watched"])
	assert.Nil(t, entry["watchedAt"])

	rs = f.ts.do(t, http.MethodPatch, "/admin/watched/"+uuid.NewString(), f.dev, "")
	assert.Equal(t, http.StatusNotFound, rs.status)
}
