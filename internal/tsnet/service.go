// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tsnet serves the controller's HTTP surface over an embedded
// Tailscale node, alongside the plain host listener, so /plan and
// /metrics are also reachable from the fabric's private overlay.
package tsnet

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tailscale.com/tsnet"

	"github.com/fabricctl/controller/internal/config"
	"github.com/fabricctl/controller/internal/logging"
)

// Server wraps a tsnet.Server bound to the controller's own HTTP router
// (unlike a reverse proxy in front of a separately listening server,
// there is only one handler here to keep serving).
type Server struct {
	cfg      *config.TSNetConfig
	stateDir string
	handler  http.Handler
	log      *logging.Logger

	srv *tsnet.Server
}

// NewServer constructs a Server that will serve handler once Start runs.
func NewServer(cfg *config.TSNetConfig, stateDir string, handler http.Handler, log *logging.Logger) *Server {
	return &Server{cfg: cfg, stateDir: stateDir, handler: handler, log: log}
}

// Start brings up the tsnet node and serves the controller's router on
// both :80 and :443 (tsnet provisions TLS certificates automatically for
// 443 within the tailnet). It blocks until ctx is done, then tears the
// node down.
func (s *Server) Start(ctx context.Context) error {
	hostname := s.cfg.Hostname
	if hostname == "" {
		hostname = "fabricctl"
	}

	dir := filepath.Join(s.stateDir, "tsnet")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create tsnet state dir: %w", err)
	}

	s.srv = &tsnet.Server{
		Dir:       dir,
		Hostname:  hostname,
		AuthKey:   s.cfg.AuthKey,
		Ephemeral: s.cfg.Ephemeral,
		Logf: func(format string, args ...any) {
			msg := fmt.Sprintf(format, args...)
			if strings.Contains(msg, "visit:") || (strings.Contains(msg, "auth") && strings.Contains(msg, "http")) {
				s.log.Info("tsnet auth", "message", msg)
			} else {
				s.log.Debug("tsnet", "message", msg)
			}
		},
	}

	ln, err := s.srv.Listen("tcp", ":80")
	if err != nil {
		return fmt.Errorf("tsnet listen :80 failed: %w", err)
	}
	ln443, err := s.srv.Listen("tcp", ":443")
	if err != nil {
		return fmt.Errorf("tsnet listen :443 failed: %w", err)
	}

	go http.Serve(ln, s.handler)
	go http.Serve(ln443, s.handler)

	s.log.Info("tsnet serving", "hostname", hostname)

	<-ctx.Done()
	return s.srv.Close()
}
