package services

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/server"
	"github.com/conneroisu/wikimark/internal/wiki"
)

// ServeService runs the live preview server.
type ServeService struct {
	config *config.Config
	logger logging.Logger
}

// NewServeService creates a new serve service.
func NewServeService(cfg *config.Config, logger logging.Logger) *ServeService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ServeService{config: cfg, logger: logger}
}

// ServerInfo describes where the preview server listens.
type ServerInfo struct {
	Host       string
	Port       int
	ServerURL  string
	PagesDir   string
	LiveReload bool
}

// GetServerInfo returns information about the server configuration.
func (s *ServeService) GetServerInfo() *ServerInfo {
	return &ServerInfo{
		Host:       s.config.Server.Host,
		Port:       s.config.Server.Port,
		ServerURL:  fmt.Sprintf("http://%s", s.config.Addr()),
		PagesDir:   s.config.Pages.Dir,
		LiveReload: s.config.Server.LiveReload,
	}
}

// NewServer builds the preview server without starting it.
func (s *ServeService) NewServer() (*server.PreviewServer, error) {
	w, err := wiki.New(s.config, s.logger)
	if err != nil {
		return nil, errors.ServeServiceError("INIT_WIKI", "failed to open pages directory", err)
	}
	srv, err := server.New(s.config, w, s.logger)
	if err != nil {
		return nil, errors.ServeServiceError("INIT_SERVER", "failed to create server", err)
	}
	return srv, nil
}

// Serve runs the server until ctx is cancelled or the process receives
// SIGINT or SIGTERM.
func (s *ServeService) Serve(ctx context.Context) error {
	srv, err := s.NewServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		var enhanced *errors.EnhancedError
		if errors.As(err, &enhanced) {
			return enhanced
		}
		return errors.ServeServiceError("START_SERVER", "server startup failed", err)
	}
	return nil
}
