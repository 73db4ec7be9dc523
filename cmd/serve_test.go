//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return newRouter(st)
}

func TestNewRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestNewRouter_ProcessUpload(t *testing.T) {
	router := newTestRouter(t)

	csv := "First Name,Last Name,Email,Phone Number,Job Title,Associated Company (Primary)\n" +
		"Jane,Doe,jane@acme.com,6025550100,CEO,Acme Corp\n" +
		"Tom,Boone,,,Owner,Boone Realty\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "contacts.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp processResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 2, resp.Summary.TotalRead)
	assert.Equal(t, 2, resp.Summary.Mapped)
	assert.Equal(t, 0, resp.Summary.Duplicates)
	assert.Equal(t, 1, resp.Summary.Invalid)
	assert.Equal(t, 1, resp.Summary.Final)

	// The finished run is queryable through the API.
	req = httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var run model.ImportRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, resp.RunID, run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, []string{"contacts.csv"}, runBaseNames(run.Files))

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var runs []model.ImportRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
}

func runBaseNames(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Base(f)
	}
	return out
}

func TestNewRouter_ProcessNoFiles(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no files attached"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no files supplied")
}

func TestNewRouter_ListRunsBadLimit(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "limit must be a positive integer")
}

func TestNewRouter_GetRunNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "run not found")
}

func TestServeHTTP_DrainsInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srvDone := make(chan error, 1)
	go func() { srvDone <- serveHTTP(ctx, &http.Server{Handler: mux}, ln) }()

	gotStatus := make(chan int, 1)
	gotErr := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			gotErr <- err
			return
		}
		resp.Body.Close()
		gotStatus <- resp.StatusCode
	}()

	// Stop the server while the request is still inside the handler; the
	// handler must finish and the response must arrive intact.
	<-entered
	cancel()
	close(release)

	select {
	case code := <-gotStatus:
		assert.Equal(t, http.StatusOK, code)
	case err := <-gotErr:
		t.Fatalf("request dropped during shutdown: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}

	select {
	case err := <-srvDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
