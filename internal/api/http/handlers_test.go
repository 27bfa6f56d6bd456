package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filedesk/internal/api/middleware"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/providers/system"
	"github.com/GriffinCanCode/filedesk/internal/providers/transfer"
	"github.com/GriffinCanCode/filedesk/internal/shared/paths"
)

type testEnv struct {
	router  *gin.Engine
	root    string
	tempDir string
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	tempDir := t.TempDir()
	resolver, err := paths.NewResolver(root)
	require.NoError(t, err)

	logger := logging.NewNop()
	ops := filesystem.NewFilesystemOps(resolver, logger, nil)
	tree := filesystem.NewFileTree(ops, "en")
	archives := filesystem.NewArchiveBuilder(ops, filesystem.ArchiveConfig{TarEnabled: true, TempDir: tempDir})
	files := transfer.New(ops, transfer.Config{})
	sys := system.NewProvider(system.Options{
		Resolver: resolver,
		TempDir:  tempDir,
		Archive:  system.ArchiveInfo{Formats: filesystem.SupportedFormats(true), TarEnabled: true, MaxDepth: 64},
	})
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = transfer.DefaultChunkSize
	}
	h := NewHandlers(tree, archives, files, sys, NewHandlerMetrics(monitoring.NewMetrics()), logger, cfg)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(Recovery(logger), middleware.RequestID())
	router.GET("/health", h.Health)
	router.GET("/api/list", h.List)
	router.POST("/api/create-directory", h.CreateDirectory)
	router.POST("/api/delete", h.Delete)
	router.POST("/api/delete-many", h.DeleteMany)
	router.POST("/api/move", h.Move)
	router.POST("/api/upload", h.Upload)
	router.GET("/api/download", h.DownloadFile)
	router.GET("/api/download-directory", h.DownloadDirectory)
	router.POST("/api/create-archive", h.CreateArchive)
	router.GET("/api/diagnostics", h.Diagnostics)
	router.GET("/boom", func(*gin.Context) { panic("boom") })
	router.NoRoute(NoRoute)
	router.NoMethod(NoMethod)

	return &testEnv{router: router, root: root, tempDir: tempDir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *testEnv) postJSON(target string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) upload(t *testing.T, dir string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", dir))
	for name, content := range files {
		fw, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *testEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(e.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func listNames(t *testing.T, e *testEnv, dir string) []string {
	t.Helper()
	w := e.get("/api/list?path=" + url.QueryEscape(dir))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var names []string
	for _, f := range decode(t, w)["files"].([]any) {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	return names
}

func TestUploadSameNameTwiceThenList(t *testing.T) {
	e := newTestEnv(t, Config{})

	w := e.upload(t, "", map[string]string{"report.txt": "first"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{"report.txt"}, body["uploaded"])
	assert.Equal(t, "Uploaded 1 file(s)", body["message"])

	w = e.upload(t, "", map[string]string{"report.txt": "second"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{"report_1.txt"}, decode(t, w)["uploaded"])

	assert.ElementsMatch(t, []string{"report.txt", "report_1.txt"}, listNames(t, e, ""))

	data, err := os.ReadFile(filepath.Join(e.root, "report_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestUploadErrors(t *testing.T) {
	e := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	w := e.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "transport_error", decode(t, w)["code"])

	w = e.upload(t, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decode(t, w)["code"])

	w = e.upload(t, "../outside", map[string]string{"a.txt": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "outside_root", decode(t, w)["code"])
}

func TestUploadRequestTooLarge(t *testing.T) {
	e := newTestEnv(t, Config{MaxUploadSize: 64})

	w := e.upload(t, "", map[string]string{"big.bin": strings.Repeat("x", 4096)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "transport_error", body["code"])
	assert.Contains(t, body["error"], "upload limit")
}

func TestListAndRoundTripPaths(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "docs/b.txt", "b")
	e.write(t, "docs/inner/c.txt", "c")
	e.write(t, "a.txt", "a")

	w := e.get("/api/list")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "", body["currentPath"])
	files := body["files"].([]any)
	require.Len(t, files, 2)
	dir := files[0].(map[string]any)
	assert.Equal(t, "docs", dir["name"])
	assert.Equal(t, "directory", dir["type"])

	assert.Equal(t, []string{"inner", "b.txt"}, listNames(t, e, dir["path"].(string)))

	w = e.get("/api/list?path=a.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_a_directory", decode(t, w)["code"])

	w = e.get("/api/list?path=missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTraversalIsForbidden(t *testing.T) {
	e := newTestEnv(t, Config{})
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(e.root, "escape")))

	for _, target := range []string{
		"/api/list?path=..",
		"/api/list?path=" + url.QueryEscape("/etc"),
		"/api/list?path=escape",
		"/api/download?path=escape&name=secret.txt",
		"/api/download?path=&name=" + url.QueryEscape("../secret.txt"),
	} {
		w := e.get(target)
		assert.Equal(t, http.StatusForbidden, w.Code, target)
		body := decode(t, w)
		assert.Equal(t, false, body["success"], target)
		assert.Equal(t, "outside_root", body["code"], target)
	}

	w := e.postJSON("/api/create-directory", map[string]any{"name": "x", "path": "escape"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, err := os.Stat(filepath.Join(outside, "x"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreateDirectoryTwice(t *testing.T) {
	e := newTestEnv(t, Config{})

	w := e.postJSON("/api/create-directory", map[string]any{"name": "photos", "path": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "photos", decode(t, w)["folderName"])

	w = e.postJSON("/api/create-directory", map[string]any{"name": "photos", "path": ""})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", decode(t, w)["code"])

	w = e.postJSON("/api/create-directory", map[string]any{"name": "COM1", "path": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"photos"}, listNames(t, e, ""))
}

func TestMalformedJSON(t *testing.T) {
	e := newTestEnv(t, Config{})

	for _, body := range []string{"", "{", "[1,2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/create-directory", strings.NewReader(body))
		w := e.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "transport_error", decode(t, w)["code"], body)
	}
}

func TestDeleteDirectoryRecursively(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "project/src/main.go", "package main")
	e.write(t, "project/README", "r")
	e.write(t, "keep.txt", "k")

	w := e.postJSON("/api/delete", map[string]any{"name": "project", "path": "", "isDirectory": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Folder project deleted", decode(t, w)["message"])

	assert.Equal(t, []string{"keep.txt"}, listNames(t, e, ""))

	w = e.postJSON("/api/delete", map[string]any{"name": "keep.txt", "path": "", "isDirectory": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_a_directory", decode(t, w)["code"])

	w = e.postJSON("/api/delete", map[string]any{"name": "project", "path": ""})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMany(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "a.txt", "a")
	e.write(t, "dir/b.txt", "b")

	w := e.postJSON("/api/delete-many", map[string]any{"names": []string{"a.txt", "ghost", "dir"}, "path": ""})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, []any{"a.txt", "dir"}, body["deleted"])
	failed := body["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, "ghost", failed[0].(map[string]any)["name"])
	assert.Contains(t, body["error"], "ghost: ")

	w = e.postJSON("/api/delete-many", map[string]any{"names": []string{"ghost"}, "path": ""})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["code"])

	e.write(t, "c.txt", "c")
	w = e.postJSON("/api/delete-many", map[string]any{"names": []string{"c.txt"}, "path": ""})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["failed"])

	w = e.postJSON("/api/delete-many", map[string]any{"names": []string{}, "path": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMove(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "a/b/file.txt", "f")
	e.write(t, "taken.txt", "t")

	w := e.postJSON("/api/move", map[string]any{"source": "a", "destination": "a/b/a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decode(t, w)["code"])
	_, err := os.Stat(filepath.Join(e.root, "a", "b", "file.txt"))
	require.NoError(t, err)

	w = e.postJSON("/api/move", map[string]any{"source": "a/b/file.txt", "destination": "taken.txt"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.postJSON("/api/move", map[string]any{"source": "a", "destination": "moved/a"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "a", body["source"])
	assert.Equal(t, "moved/a", body["destination"])
	_, err = os.Stat(filepath.Join(e.root, "moved", "a", "b", "file.txt"))
	assert.NoError(t, err)
}

func TestCreateArchive(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "a.txt", "alpha")
	e.write(t, "sub/x.txt", "x")
	e.write(t, "sub/deep/y.txt", "y")
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "sub", "empty"), 0o755))

	w := e.postJSON("/api/create-archive", map[string]any{
		"archiveName": "backup",
		"archiveType": "zip",
		"items":       []string{"a.txt", "sub/"},
		"path":        "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "backup.zip", body["archiveName"])
	assert.Equal(t, "zip", body["method"])
	assert.Greater(t, body["size"].(float64), float64(0))

	zr, err := zip.OpenReader(filepath.Join(e.root, "backup.zip"))
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["a.txt"])
	assert.True(t, names["sub/x.txt"])
	assert.True(t, names["sub/deep/y.txt"])
	assert.True(t, names["sub/empty/"])

	w = e.postJSON("/api/create-archive", map[string]any{"archiveName": "backup", "files": []string{"a.txt"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.postJSON("/api/create-archive", map[string]any{"archiveName": "none", "items": []string{"../x", "ghost"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "no_valid_entries", decode(t, w)["code"])

	w = e.postJSON("/api/create-archive", map[string]any{"archiveName": "r", "format": "rar", "items": []string{"a.txt"}})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestDownloadFile(t *testing.T) {
	e := newTestEnv(t, Config{ChunkSize: 4})
	e.write(t, "docs/отчёт.txt", "hello world")

	w := e.get("/api/download?path=docs&name=" + url.QueryEscape("отчёт.txt"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "11", w.Header().Get("Content-Length"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment; filename=\""))
	assert.Contains(t, disposition, "filename*=UTF-8''%D0%BE")

	w = e.get("/api/download?path=docs&name=missing.txt")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	w = e.get("/api/download?path=&name=docs")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_a_file", decode(t, w)["code"])
}

func TestDownloadDirectoryRemovesTempFile(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "photos/a.jpg", "jpeg")
	e.write(t, "photos/2024/b.jpg", "jpeg2")
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "blank"), 0o755))

	w := e.get("/api/download-directory?path=photos")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "photos.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["a.jpg"])
	assert.True(t, names["2024/b.jpg"])

	left, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, left)

	w = e.get("/api/download-directory?path=blank")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "empty_directory", decode(t, w)["code"])
	left, err = os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDiagnostics(t *testing.T) {
	e := newTestEnv(t, Config{})
	e.write(t, "a.txt", "abc")

	w := e.get("/api/diagnostics")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "runtime")
	assert.Equal(t, true, body["storage"].(map[string]any)["writable"])
	assert.NotContains(t, body, "usage")

	w = e.get("/api/diagnostics?usage=true")
	require.Equal(t, http.StatusOK, w.Code)
	usage := decode(t, w)["usage"].(map[string]any)
	assert.Equal(t, float64(1), usage["files"])
}

func TestEnvelopes(t *testing.T) {
	e := newTestEnv(t, Config{})

	w := e.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = e.get("/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["code"])

	w = e.do(httptest.NewRequest(http.MethodDelete, "/api/move", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.get("/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal", body["code"])
	assert.Equal(t, "internal error", body["error"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor("outside_root"))
	assert.Equal(t, http.StatusForbidden, statusFor("permission_denied"))
	assert.Equal(t, http.StatusConflict, statusFor("already_exists"))
	assert.Equal(t, http.StatusUnsupportedMediaType, statusFor("archive_format_unsupported"))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor("empty_directory"))
	assert.Equal(t, http.StatusInternalServerError, statusFor("internal"))
}
