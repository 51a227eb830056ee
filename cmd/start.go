// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fabricctl/controller/internal/config"
)

const (
	binaryName = "fabricctl"
	pidFileName = "fabricctl.pid"
	logFileName = "fabricctl.log"
)

// RunStart starts the control plane daemon in the background.
func RunStart(configFile string) error {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", configFile)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	pidFile := filepath.Join(cfg.StateDir, pidFileName)
	if running, pid := pidFileAlive(pidFile); running {
		return fmt.Errorf("process already running (PID: %d)", pid)
	}
	os.Remove(pidFile)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	logFile := filepath.Join(cfg.StateDir, logFileName)

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	daemon := exec.Command(exe, "run", configFile)
	daemon.Stdout = logF
	daemon.Stderr = logF
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := daemon.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := daemon.Process.Pid
	fmt.Printf("started %s (PID: %d)\n", binaryName, pid)
	fmt.Printf("logs: %s\n", logFile)

	done := make(chan error, 1)
	go func() { done <- daemon.Wait() }()

	select {
	case err := <-done:
		fmt.Fprintln(os.Stderr, "error: daemon exited immediately")
		for _, line := range tailLogFile(logFile, 10) {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
		if err != nil {
			return fmt.Errorf("daemon failed to start: %w", err)
		}
		return fmt.Errorf("daemon exited unexpectedly")

	case <-time.After(500 * time.Millisecond):
		if err := daemon.Process.Signal(syscall.Signal(0)); err != nil {
			return fmt.Errorf("daemon died during startup (check logs: %s)", logFile)
		}
		return nil
	}
}

// pidFileAlive reports whether pidFile names a process that is still
// running. A stale file (process gone) is not treated as running.
func pidFileAlive(pidFile string) (alive bool, pid int) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return false, 0
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, pid
}

// tailLogFile returns the last n lines of a log file.
func tailLogFile(path string, n int) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
