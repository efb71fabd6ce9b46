// Package server implements the live preview server: rendered pages, a JSON
// render API and WebSocket reload notifications driven by a file watcher.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/watcher"
	"github.com/conneroisu/wikimark/internal/websocket"
	"github.com/conneroisu/wikimark/internal/wiki"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// PreviewServer serves wiki pages with live reload capability.
type PreviewServer struct {
	config       *config.Config
	wiki         *wiki.Wiki
	logger       logging.Logger
	wsManager    *websocket.Manager
	watcher      *watcher.FileWatcher
	limiter      *RateLimiter
	origins      *websocket.AllowList
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
	startedAt    time.Time
}

// New creates a preview server for w. The watcher is only created when live
// reload is enabled.
func New(cfg *config.Config, w *wiki.Wiki, logger logging.Logger) (*PreviewServer, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")

	origins := websocket.NewAllowList(cfg.Server.AllowedOrigins)
	s := &PreviewServer{
		config:    cfg,
		wiki:      w,
		logger:    logger,
		wsManager: websocket.NewManager(origins, logger),
		limiter:   NewRateLimiter(cfg.Server.RenderRateLimit, logger),
		origins:   origins,
		startedAt: time.Now(),
	}

	if cfg.Server.LiveReload {
		fw, err := watcher.NewFileWatcher(watcher.DefaultDebounce, logger)
		if err != nil {
			return nil, err
		}
		fw.AddFilter(watcher.NoGitFilter)
		fw.AddFilter(watcher.NoEditorTempFilter)
		fw.AddFilter(watcher.ExtensionFilter(cfg.Pages.Extensions...))
		fw.AddFilter(watcher.ExcludeFilter(cfg.Pages.ExcludePatterns...))
		fw.AddHandler(s.handleFileChange)
		s.watcher = fw
	}
	return s, nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /w/{page...}", s.handlePage)
	mux.Handle("POST /api/render", RateLimitMiddleware(s.limiter)(http.HandlerFunc(s.handleRender)))
	mux.HandleFunc("GET /api/pages", s.handlePages)
	mux.HandleFunc("GET /static/highlight.css", s.handleHighlightCSS)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.config.Server.LiveReload {
		mux.HandleFunc("GET /ws", s.wsManager.HandleWebSocket)
	}
	return s.addMiddleware(mux)
}

// Start scans the pages, starts the watcher and serves until the server is
// shut down or ctx is cancelled.
func (s *PreviewServer) Start(ctx context.Context) error {
	if err := s.wiki.Load(ctx); err != nil {
		s.logger.Warn(ctx, err, "initial scan finished with errors")
	}
	s.logger.Info(ctx, "pages loaded", "count", s.wiki.Registry().Count())

	if s.watcher != nil {
		if err := s.watcher.AddRecursive(s.config.Pages.Dir); err != nil {
			s.logger.Warn(ctx, err, "failed to watch pages directory", "dir", s.config.Pages.Dir)
		} else if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn(ctx, err, "failed to start file watcher")
		}
	}

	addr := s.config.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewEnhancedError("Failed to start server", err,
			errors.ServerStartError(err, s.config.Server.Port))
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	url := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "preview server listening", "url", url)
	if s.config.Server.Open {
		go s.openBrowser(ctx, url)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return errors.WrapNetwork(err, errors.ErrCodeInternalError, "server error")
	}
	return nil
}

// handleFileChange refreshes changed pages and tells browsers what to reload.
func (s *PreviewServer) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	before := s.wiki.Registry().Count()
	var changed, removed []string

	for _, event := range events {
		name, err := s.wiki.Refresh(ctx, event.Path)
		if err != nil {
			s.logger.Warn(ctx, err, "failed to refresh page", "path", event.Path, "event", event.Type.String())
			continue
		}
		if name == "" {
			continue
		}
		if _, ok := s.wiki.Registry().Get(name); ok {
			changed = append(changed, name)
		} else {
			removed = append(removed, name)
		}
	}

	// The index lists every page, so additions and removals reload everything.
	if s.wiki.Registry().Count() != before {
		s.wsManager.FullReload()
		return nil
	}
	for _, name := range changed {
		s.wsManager.PageUpdated(name)
	}
	for _, name := range removed {
		s.wsManager.PageRemoved(name)
	}
	return nil
}

func (s *PreviewServer) openBrowser(ctx context.Context, url string) {
	time.Sleep(100 * time.Millisecond)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		s.logger.Warn(ctx, nil, "cannot open browser on this platform", "os", runtime.GOOS)
		return
	}
	if err := cmd.Start(); err != nil {
		s.logger.Warn(ctx, err, "failed to open browser", "url", url)
	}
}

func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	secured := SecurityMiddleware(&SecurityConfig{
		CSP:            DefaultSecurityConfig(s.origins).CSP,
		XFrameOptions:  "SAMEORIGIN",
		ContentNoSniff: true,
		ReferrerPolicy: "strict-origin-when-cross-origin",
		Origins:        s.origins,
		Logger:         s.logger,
	})(handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		if origin := r.Header.Get("Origin"); origin != "" && s.origins.IsAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		secured.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// Shutdown stops the watcher, disconnects browsers and drains the HTTP
// server. It is safe to call more than once.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "failed to stop file watcher")
			}
		}
		if err := s.wsManager.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, err, "failed to close websocket clients")
		}

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
