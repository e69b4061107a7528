package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/pbaille/portfolio/internal/counter"
	"github.com/pbaille/portfolio/internal/domain"
	"github.com/pbaille/portfolio/internal/notify"
	"github.com/pbaille/portfolio/internal/store"
	"go.uber.org/zap"
)

// ErrNoPort is returned when every port in the retry range is taken
var ErrNoPort = errors.New("no free port")

// Notifier delivers a contact submission over the configured channels
type Notifier interface {
	Notify(ctx context.Context, c domain.Contact) notify.Result
}

// Options configures the HTTP server
type Options struct {
	Port         int
	PortAttempts int
	PublicDir    string
}

// Server handles HTTP requests for the portfolio site
type Server struct {
	store    store.Store
	counter  *counter.Counter
	notifier Notifier
	opts     Options
	logger   *zap.Logger
}

// New creates a new API server
func New(s store.Store, n Notifier, opts Options, logger *zap.Logger) *Server {
	if opts.PortAttempts < 1 {
		opts.PortAttempts = 1
	}
	return &Server{
		store:    s,
		counter:  counter.New(s),
		notifier: n,
		opts:     opts,
		logger:   logger,
	}
}

// Handler returns the full routing tree with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/visitors", s.visitors)
	mux.HandleFunc("GET /api/notes", s.listNotes)
	mux.HandleFunc("POST /api/contact", s.contact)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	// Everything else is the single page app
	mux.Handle("/", s.spa())

	return withCORS(withLogging(s.logger, mux))
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	port := ln.Addr().(*net.TCPAddr).Port
	s.logger.Info("server running", zap.String("url", fmt.Sprintf("http://localhost:%d", port)))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// listen binds the configured port, moving up one port at a time while the
// address is in use
func (s *Server) listen() (net.Listener, error) {
	for i := 0; i < s.opts.PortAttempts; i++ {
		port := s.opts.Port + i
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen on port %d: %w", port, err)
		}
		s.logger.Warn("port already in use, trying next", zap.Int("port", port), zap.Int("next", port+1))
	}
	return nil, fmt.Errorf("%w: ports %d-%d are in use", ErrNoPort, s.opts.Port, s.opts.Port+s.opts.PortAttempts-1)
}
