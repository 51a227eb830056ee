// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"time"

	"github.com/beevik/ntp"

	"github.com/fabricctl/controller/internal/logging"
)

// DefaultNTPServers is queried when no ntp block is declared.
var DefaultNTPServers = []string{"pool.ntp.org"}

// defaultMaxDrift bounds the acceptable local clock offset before
// CheckClockDrift logs a warning.
const defaultMaxDrift = 50 * time.Millisecond

// CheckClockDrift queries the configured NTP servers once and warns for
// each reachable one that reports a clock offset beyond MaxDrift. The
// overhead metric telemetry.Processor computes is only meaningful if the
// controller's own clock is trustworthy; this is a startup sanity check,
// not an ongoing discipline loop (the controller does not step its own
// clock).
func (c *Config) CheckClockDrift(log *logging.Logger) {
	servers := DefaultNTPServers
	maxDrift := defaultMaxDrift
	if c.NTP != nil {
		if len(c.NTP.Servers) > 0 {
			servers = c.NTP.Servers
		}
		if c.NTP.MaxDrift != "" {
			if d, err := time.ParseDuration(c.NTP.MaxDrift); err == nil {
				maxDrift = d
			}
		}
	}

	var reached bool
	for _, server := range servers {
		resp, err := ntp.Query(server)
		if err != nil {
			log.Warn("ntp query failed", "server", server, "error", err)
			continue
		}
		reached = true

		offset := resp.ClockOffset
		if offset < 0 {
			offset = -offset
		}
		if offset > maxDrift {
			log.Warn("local clock drift exceeds threshold", "server", server, "offset", offset, "max_drift", maxDrift)
		} else {
			log.Info("ntp clock check passed", "server", server, "offset", offset)
		}
	}

	if !reached {
		log.Warn("no configured ntp server was reachable, digest overhead metrics may be unreliable")
	}
}
