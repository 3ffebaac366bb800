package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/hafizmfadli/go-catalog/internal/jsonlog"
	"github.com/hafizmfadli/go-catalog/internal/uploader"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUploader struct {
	mu     sync.Mutex
	inputs []string
	opts   []uploader.Options
	url    string
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, input string, opts uploader.Options) (*uploader.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, input)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &uploader.Result{SecureURL: f.url}, nil
}

type sentMail struct {
	recipient    string
	templateFile string
	data         any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(recipient, templateFile string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{recipient, templateFile, data})
	return nil
}

type testApp struct {
	*application
	uploader *fakeUploader
	mailer   *fakeMailer
}

func newTestApplication(t *testing.T) *testApp {
	t.Helper()

	db, err := sql.Open(data.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	migrator, err := data.NewMigrator(db, data.DriverSQLite, nil)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	models := data.NewModels(db, idhash.New("test-secret"))
	models.APIKeys = data.APIKeyModel{DB: db, Cost: bcrypt.MinCost}

	up := &fakeUploader{url: "https://res.cloudinary.com/demo/image/upload/posters/poster.jpg"}
	m := &fakeMailer{}

	var cfg config
	cfg.env = "testing"

	app := &application{
		config:   cfg,
		logger:   jsonlog.NewLogger(io.Discard, jsonlog.LevelOff),
		models:   models,
		uploader: up,
		mailer:   m,
	}

	return &testApp{application: app, uploader: up, mailer: m}
}

// newKey returns a bearer token for a fresh key with role.
func (ta *testApp) newKey(t *testing.T, name string, role data.Role) string {
	t.Helper()
	_, token, err := ta.models.APIKeys.Insert(name, role)
	require.NoError(t, err)
	return token
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &testServer{ts}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rs, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer rs.Body.Close()

	raw, err := io.ReadAll(rs.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}

	return response{status: rs.StatusCode, header: rs.Header, body: decoded}
}

// dataObject returns body["data"] as an object.
func (r response) dataObject(t *testing.T) map[string]any {
	t.Helper()
	obj, ok := r.body["data"].(map[string]any)
	require.True(t, ok, "data is not an object: %v", r.body)
	return obj
}

// dataList returns body["data"] as a list of objects.
func (r response) dataList(t *testing.T) []map[string]any {
	t.Helper()
	raw, ok := r.body["data"].([]any)
	require.True(t, ok, "data is not a list: %v", r.body)

	out := make([]map[string]any, len(raw))
	for i, item := range raw {
		out[i] = item.(map[string]any)
	}
	return out
}
