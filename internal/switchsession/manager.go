// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package switchsession

import (
	"sync"
	"time"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/supervisor"
)

// Manager owns one switch's session across its lifetime, reopening it on
// connection failure with exponential backoff until the supervisor's
// consecutive-failure ceiling marks it permanently failed.
type Manager struct {
	cfg Config
	sup *supervisor.SessionSupervisor
	log *logging.Logger

	mu      sync.RWMutex
	session *Session
	stopCh  chan struct{}
}

// NewManager constructs a Manager for cfg using the default reconnect
// policy. Call Run to open the session and keep it alive.
func NewManager(cfg Config, log *logging.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		sup:    supervisor.New(supervisor.DefaultConfig()),
		log:    log,
		stopCh: make(chan struct{}),
	}
}

// Session returns the currently open session, or nil between a drop and
// the next successful reconnect.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Failed reports whether the reconnect ceiling has been reached.
func (m *Manager) Failed() bool { return m.sup.Failed() }

// Run blocks, opening the session and reopening it on failure, until
// Stop is called or the supervisor marks the session permanently failed.
func (m *Manager) Run() {
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if m.cfg.Host != "" && !supervisor.ProbeReachable(m.cfg.Host, 2*time.Second) {
			m.log.Warn("switch host unreachable, skipping dial attempt", "switch", m.cfg.SwitchName, "host", m.cfg.Host)
		} else if s, err := Open(m.cfg); err == nil {
			m.sup.RecordSuccess()
			m.mu.Lock()
			m.session = s
			m.mu.Unlock()
			m.log.Info("switch session established", "switch", m.cfg.SwitchName)
			m.waitForDrop(s)
			m.mu.Lock()
			m.session = nil
			m.mu.Unlock()
			continue
		} else {
			m.log.Warn("switch session dial failed", "switch", m.cfg.SwitchName, "error", err)
		}

		delay, failed := m.sup.RecordFailure()
		if failed {
			m.log.Error("switch session permanently failed after repeated reconnect attempts", "switch", m.cfg.SwitchName)
			return
		}

		select {
		case <-time.After(delay):
		case <-m.stopCh:
			return
		}
	}
}

// waitForDrop blocks until s's stream dispatcher observes a decode
// failure (device gone) or Stop is called.
func (m *Manager) waitForDrop(s *Session) {
	for {
		select {
		case <-s.closeCh:
			return
		case <-m.stopCh:
			s.Close()
			return
		case <-time.After(time.Second):
			if _, err := s.ReadTableEntries(0); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Stop closes the current session, if any, and ends Run's loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	close(m.stopCh)
	if session != nil {
		session.Close()
	}
}
