// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/fabricctl/controller/internal/config"
	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/orchestrator"
	"github.com/fabricctl/controller/internal/tsnet"
)

// RunRun runs the control plane in the foreground: it is the process
// RunStart forks into, not meant to be invoked directly by an operator.
// It loads configuration, brings up every switch session, serves the
// HTTP surface, and blocks until signaled.
func RunRun(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log := logging.New(cfg.LoggerConfig())

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	pidFile := filepath.Join(cfg.StateDir, pidFileName)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer os.Remove(pidFile)

	cfg.CheckClockDrift(log)

	o, err := orchestrator.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}
	o.Start()
	defer o.Stop()

	addr := ":8080"
	if cfg.HTTP != nil && cfg.HTTP.ListenAddr != "" {
		addr = cfg.HTTP.ListenAddr
	}
	srv := &http.Server{Addr: addr, Handler: o.Router()}
	go func() {
		log.Info("serving http", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	var tsCancel context.CancelFunc
	if cfg.TSNet != nil && cfg.TSNet.Enabled {
		var tsCtx context.Context
		tsCtx, tsCancel = context.WithCancel(context.Background())
		ts := tsnet.NewServer(cfg.TSNet, cfg.StateDir, o.Router(), log)
		go func() {
			if err := ts.Start(tsCtx); err != nil {
				log.Error("tsnet server failed", "error", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for s := range sig {
		switch s {
		case syscall.SIGHUP:
			log.Info("reload requested")
			reloaded, err := config.Load(configFile)
			if err != nil {
				log.Error("reload failed, keeping previous configuration", "error", err)
				continue
			}
			cfg = reloaded
			log.Info("configuration reloaded")
		case syscall.SIGTERM, syscall.SIGINT:
			log.Info("shutting down")
			_ = srv.Close()
			if tsCancel != nil {
				tsCancel()
			}
			return nil
		}
	}
	return nil
}
