// Package viewer displays a rendered figure in the browser. It stands in
// for an interactive plot window: Serve blocks until its context is
// cancelled, usually by Ctrl-C.
package viewer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/banshee-data/trackviz/internal/httputil"
	"github.com/banshee-data/trackviz/internal/monitoring"
)

//go:embed index.html
var assets embed.FS

const shutdownTimeout = 2 * time.Second

// Page is everything the viewer serves.
type Page struct {
	Summary Summary
	// PNG is the rendered figure.
	PNG []byte
	// Chart is an optional self-contained interactive chart document.
	Chart []byte
}

// Config configures a Server.
type Config struct {
	Address string
	Page    Page
}

// Server serves one Page over HTTP.
type Server struct {
	address string
	page    Page
	index   *template.Template
	server  *http.Server
}

// NewServer creates a viewer for cfg.Page.
func NewServer(cfg Config) (*Server, error) {
	index, err := template.ParseFS(assets, "index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	s := &Server{
		address: cfg.Address,
		page:    cfg.Page,
		index:   index,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the viewer routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/figure.png", s.handleFigure)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/api/summary", s.handleSummary)
	return mux
}

// Serve listens on the configured address and blocks until ctx is done,
// then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("viewer listen on %s: %w", s.address, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		monitoring.Logf("viewer listening on http://%s (Ctrl-C to exit)", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("viewer: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("viewer shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("viewer force close error: %v", err)
		}
	}
	monitoring.Logf("viewer stopped")
	return nil
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w)
		return false
	}
	return true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found: "+r.URL.Path)
		return
	}
	if !allowRead(w, r) {
		return
	}

	data := struct {
		Summary  Summary
		HasChart bool
	}{
		Summary:  s.page.Summary,
		HasChart: len(s.page.Chart) > 0,
	}
	var buf bytes.Buffer
	if err := s.index.Execute(&buf, data); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render index: %v", err))
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if len(s.page.PNG) == 0 {
		httputil.NotFound(w, "no figure rendered")
		return
	}
	httputil.WriteBody(w, "image/png", s.page.PNG)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if len(s.page.Chart) == 0 {
		httputil.NotFound(w, "no interactive chart for this view")
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", s.page.Chart)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	httputil.WriteJSONOK(w, s.page.Summary)
}
