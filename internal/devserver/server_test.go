package devserver

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/packline/packline"
)

func testOutDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chunks"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<html><body><h1>app</h1></body></html>"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"),
		[]byte("console.log(1)"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks", "shared.js"),
		[]byte("export {}"), 0600))
	return dir
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	return New(cfg, func() error { return nil }, zerolog.Nop())
}

func TestServeStaticFiles(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t)})

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "console.log(1)", rec.Body.String())
}

func TestServeNestedFile(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t)})

	req := httptest.NewRequest(http.MethodGet, "/chunks/shared.js", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServeIndexForDirectory(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t)})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1>app</h1>")
}

func TestMissingFileIs404WithoutSPA(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t)})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSPAFallbackServesIndex(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t), SPA: true})

	req := httptest.NewRequest(http.MethodGet, "/some/route", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1>app</h1>")
}

func TestSPAFallbackSkipsNonHTML(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t), SPA: true})

	req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveReloadInjection(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t), LiveReload: true})

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Injection lands inside the body element.
	require.Contains(t, rec.Body.String(), `<script src="`+scriptPath+`"></script></body>`)
}

func TestReloadScriptServed(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t), LiveReload: true})

	req := httptest.NewRequest(http.MethodGet, scriptPath, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "EventSource")
}

func TestPublicPathPrefix(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t), PublicPath: "/static/"})

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The bare root redirects into the public path.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, "/static/", rec.Header().Get("Location"))
}

func TestProxyForwardsRequests(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "from backend "+r.URL.Path)
	}))
	defer backend.Close()

	s := newTestServer(t, Config{
		OutDir:  testOutDir(t),
		Proxies: []packline.ProxyRule{{Prefix: "/api", Target: backend.URL}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "from backend /api/things", rec.Body.String())
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t, Config{
		OutDir:      testOutDir(t),
		CORSOrigins: []string{"https://app.localhost"},
	})

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Origin", "https://app.localhost")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, "https://app.localhost", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompression(t *testing.T) {
	dir := testOutDir(t)
	// Large enough to clear the compressor's minimum size.
	big := strings.Repeat("console.log(\"padding\");\n", 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.js"), []byte(big), 0600))

	s := newTestServer(t, Config{OutDir: dir, Compress: true})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/big.js", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, big, string(body))
}

func TestPathTraversalIsContained(t *testing.T) {
	s := newTestServer(t, Config{OutDir: testOutDir(t)})

	req := httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
}
