// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fabricctl/controller/internal/config"
)

// RunReload validates configFile and, if valid, sends SIGHUP to the
// running daemon, which re-loads and validates its configuration file.
// Open switch sessions, the pushed pipeline and the applied plan are not
// rebuilt; a topology or schema change still needs a restart.
func RunReload(configFile string) error {
	fmt.Printf("validating configuration: %s\n", configFile)
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Println("configuration is valid.")

	pidFile := filepath.Join(cfg.StateDir, pidFileName)
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file %s: %w (is the daemon running?)", pidFile, err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", pidStr)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	fmt.Printf("sending SIGHUP to process %d...\n", pid)
	if err := process.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("failed to signal process: %w", err)
	}

	fmt.Println("reload signal sent successfully.")
	return nil
}
