// Package devserver serves a built output directory during development:
// static files under the public path, SPA fallback, upstream proxying,
// debounced rebuilds on source changes and live reload over SSE.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/packline/packline"
	"github.com/packline/packline/internal/logger"
)

const (
	eventsPath = "/__packline/events"
	scriptPath = "/__packline/reload.js"
)

type Config struct {
	Host       string
	Port       int
	OutDir     string
	PublicPath string

	SPA         bool
	Compress    bool
	Open        bool
	LiveReload  bool
	CORSOrigins []string
	Proxies     []packline.ProxyRule

	WatchDirs []string
	Debounce  time.Duration
}

// Server hosts the dev HTTP endpoint and drives rebuilds. The rebuild
// function is supplied by the caller and is expected to refresh the
// output directory; the server broadcasts a reload after each success.
type Server struct {
	cfg     Config
	log     zerolog.Logger
	rebuild func() error
	hub     *Hub
	ln      net.Listener
}

func New(cfg Config, rebuild func() error, log zerolog.Logger) *Server {
	if cfg.PublicPath == "" || !strings.HasPrefix(cfg.PublicPath, "/") {
		cfg.PublicPath = "/"
	}
	if !strings.HasSuffix(cfg.PublicPath, "/") {
		cfg.PublicPath += "/"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	return &Server{
		cfg:     cfg,
		log:     log,
		rebuild: rebuild,
		hub:     NewHub(log),
	}
}

// URL returns the address the server is reachable at. Only valid after
// Run has started listening.
func (s *Server) URL() string {
	if s.ln != nil {
		return fmt.Sprintf("http://%s", s.ln.Addr())
	}
	return fmt.Sprintf("http://%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln

	srv := configureHTTPServer(addr, s.Handler())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(s.cfg.WatchDirs) > 0 {
		// The output directory must never feed the watcher: rebuilds
		// write there, and the events would retrigger the rebuild.
		watcher, err := NewWatcher(s.cfg.WatchDirs, []string{s.cfg.OutDir}, s.cfg.Debounce, s.onChange, s.log)
		if err != nil {
			_ = ln.Close()
			return err
		}
		g.Go(func() error { return watcher.Run(ctx) })
	}

	for _, rule := range s.cfg.Proxies {
		g.Go(func() error {
			s.waitForUpstream(ctx, rule)
			return nil
		})
	}

	s.log.Info().
		Str("url", s.URL()).
		Str("dir", s.cfg.OutDir).
		Bool("livereload", s.cfg.LiveReload).
		Msg("Dev server listening")

	if s.cfg.Open {
		openBrowser(s.URL(), s.log)
	}

	return g.Wait()
}

func (s *Server) onChange() {
	started := time.Now()
	if err := s.rebuild(); err != nil {
		s.log.Error().Err(err).Msg("Rebuild failed")
		return
	}
	s.log.Info().Dur("duration", time.Since(started)).Msg("Rebuilt")
	s.hub.Broadcast("reload")
}

// Handler assembles the full middleware stack. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.cfg.LiveReload {
		mux.Handle(eventsPath, s.hub)
		mux.HandleFunc(scriptPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			_, _ = w.Write([]byte(reloadScript))
		})
	}

	for _, rule := range s.cfg.Proxies {
		mux.Handle(strings.TrimSuffix(rule.Prefix, "/")+"/", s.proxyHandler(rule))
	}

	if s.cfg.PublicPath != "/" {
		mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.cfg.PublicPath, http.StatusTemporaryRedirect)
		})
	}
	mux.HandleFunc(s.cfg.PublicPath, s.serveStatic)

	var handler http.Handler = mux
	if len(s.cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}
	if s.cfg.Compress {
		handler = gzhttp.GzipHandler(handler)
	}
	return logger.Requests(s.log)(handler)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(s.cfg.PublicPath, "/"))
	rel = path.Clean("/" + rel)
	full := filepath.Join(s.cfg.OutDir, filepath.FromSlash(rel))

	fi, err := os.Stat(full)
	if err == nil && fi.IsDir() {
		full = filepath.Join(full, "index.html")
		_, err = os.Stat(full)
	}
	if err != nil {
		if s.cfg.SPA && wantsHTML(r) {
			full = filepath.Join(s.cfg.OutDir, "index.html")
		} else {
			http.NotFound(w, r)
			return
		}
	}

	if s.cfg.LiveReload && strings.HasSuffix(full, ".html") {
		s.serveInjected(w, r, full)
		return
	}
	http.ServeFile(w, r, full)
}

// serveInjected appends the live reload client to HTML responses.
func (s *Server) serveInjected(w http.ResponseWriter, r *http.Request, file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	tag := `<script src="` + scriptPath + `"></script>`
	html := string(data)
	if idx := strings.LastIndex(html, "</body>"); idx != -1 {
		html = html[:idx] + tag + html[idx:]
	} else {
		html += tag
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(html))
}

func (s *Server) proxyHandler(rule packline.ProxyRule) http.Handler {
	target, err := url.Parse(rule.Target)
	if err != nil {
		// Validation runs before the server is constructed.
		panic(fmt.Sprintf("unreachable: bad proxy target %q", rule.Target))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.log.Error().Err(err).Str("target", rule.Target).Msg("Proxy error")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	return proxy
}

// waitForUpstream dials the proxy target with exponential backoff so the
// first proxied request does not race a backend that is still starting.
func (s *Server) waitForUpstream(ctx context.Context, rule packline.ProxyRule) {
	target, err := url.Parse(rule.Target)
	if err != nil {
		return
	}

	addr := target.Host
	if target.Port() == "" {
		port := "80"
		if target.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(target.Hostname(), port)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return struct{}{}, err
		}
		_ = conn.Close()
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("target", rule.Target).Msg("Proxy upstream not reachable")
		return
	}
	s.log.Info().Str("prefix", rule.Prefix).Str("target", rule.Target).Msg("Proxy upstream ready")
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func openBrowser(url string, log zerolog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to open browser")
	}
}
