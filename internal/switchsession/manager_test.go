// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package switchsession

import (
	"testing"
	"time"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestManager_StopEndsRunWithoutReachableSocket(t *testing.T) {
	cfg := Config{SwitchName: "s1", SocketPath: "/nonexistent/s1.sock", DialTimeout: 50 * time.Millisecond}
	m := NewManager(cfg, logging.New(logging.DefaultConfig()))

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	assert.Nil(t, m.Session())
	m.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
