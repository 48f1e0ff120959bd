package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/session"
	"github.com/tryandromeda/copilot/internal/workspace"
)

//go:embed static/*
var staticFS embed.FS

// Options configures the HTTP front-end.
type Options struct {
	Bind string
	Port int

	// WebRoot serves the web client from disk. Empty uses the embedded client.
	WebRoot string
}

// NewServer creates the HTTP server for the chat API and web client.
func NewServer(registry *workspace.Registry, sessions *session.Store, log zerolog.Logger, opts Options) (*http.Server, error) {
	var static fs.FS
	if opts.WebRoot != "" {
		static = os.DirFS(opts.WebRoot)
	} else {
		sub, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
		}
		static = sub
	}

	h := &Handlers{
		registry: registry,
		sessions: sessions,
		static:   static,
		log:      log,
		now:      time.Now,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Routes builds the request multiplexer with middleware applied.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("OPTIONS /", h.HandleOptions)

	mux.HandleFunc("POST /api/chat", h.HandleChat)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/sessions", h.HandleSessions)

	mux.HandleFunc("GET /api/workspaces", h.HandleWorkspaceList)
	mux.HandleFunc("POST /api/workspaces", h.HandleWorkspaceCreate)
	mux.HandleFunc("PATCH /api/workspaces", h.HandleWorkspaceUpdate)
	mux.HandleFunc("DELETE /api/workspaces", h.HandleWorkspaceDelete)
	mux.HandleFunc("POST /api/workspaces/switch", h.HandleWorkspaceSwitch)

	mux.HandleFunc("GET /", h.HandleStatic)

	return cors(securityHeaders(mux))
}

// cors opens the API to any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msg("copilot server listening")

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
