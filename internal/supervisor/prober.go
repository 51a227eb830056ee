// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ProbeReachable sends a handful of ICMP echo requests to host and reports
// whether any were answered within timeout. It is used as a cheap
// pre-reconnect check for TCP-addressed switches, so a session does not
// burn a full RPC dial/arbitration attempt against a host that is plainly
// down (e.g. a dead link between controller and rack). It is a best-effort
// signal, not a correctness requirement: dial failures are still handled
// the same way whether or not the probe ran.
func ProbeReachable(host string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return true // can't probe (e.g. needs privileges) -- don't block the dial
	}
	pinger.Count = 2
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		return true
	}
	stats := pinger.Statistics()
	return stats.PacketsRecv > 0
}
