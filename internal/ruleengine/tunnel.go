// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleengine

import (
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/schema"
)

// TunnelEndpoint resolves a switch session plus the egress port toward
// its next hop, by switch name. Supplied by the orchestrator, which owns
// the live session set.
type TunnelEndpoint interface {
	Conn(switchName string) (TableReaderWriter, bool)
	PortTo(switchName, neighbor string) (int, bool)
}

// InstallTunnel programs one direction of a host-pair tunnel: an LPM
// ingress rule on the first switch, exact transit rules on every
// intermediate switch, and an egress rule on the last switch. path is a
// full switch-name path [s0...sn]; tunnelID is its encoded id. Each hop's
// failure is independent and logged; installation continues with the
// remaining hops.
func (e *Engine) InstallTunnel(eps TunnelEndpoint, path []string, tunnelID int, dstIP [4]byte, dstMAC [6]byte, egressHostPort uint32) Result {
	var res Result
	if len(path) == 0 {
		return res
	}

	ingress, ok := eps.Conn(path[0])
	if ok {
		entry, err := e.schema.BuildTableEntry("ipv4_lpm",
			map[string]schema.MatchValue{"hdr.ipv4.dstAddr": {Kind: schema.MatchLPM, LPMAddr: dstIP[:], LPMPrefixLen: 32}},
			false, "myTunnel_ingress",
			map[string]uint64{"dst_id": uint64(tunnelID)}, 0)
		e.applyOrLog(&res, ingress, entry, err, "ipv4_lpm", path[0])
	} else {
		res.Failed++
	}

	for i := 1; i < len(path)-1; i++ {
		sw := path[i]
		next := path[i+1]
		conn, ok := eps.Conn(sw)
		if !ok {
			res.Failed++
			continue
		}
		port, ok := eps.PortTo(sw, next)
		if !ok {
			e.log.Warn("no port toward next hop", "switch", sw, "next", next)
			res.Failed++
			continue
		}
		entry, err := e.schema.BuildTableEntry("myTunnel_exact",
			map[string]schema.MatchValue{"hdr.myTunnel.dst_id": {Kind: schema.MatchExact, Exact: uintBytes(uint64(tunnelID))}},
			false, "myTunnel_forward",
			map[string]uint64{"port": uint64(port)}, 0)
		e.applyOrLog(&res, conn, entry, err, "myTunnel_exact", sw)
	}

	if len(path) > 1 {
		last := path[len(path)-1]
		conn, ok := eps.Conn(last)
		if ok {
			entry, err := e.schema.BuildTableEntry("myTunnel_exact",
				map[string]schema.MatchValue{"hdr.myTunnel.dst_id": {Kind: schema.MatchExact, Exact: uintBytes(uint64(tunnelID))}},
				false, "myTunnel_egress",
				map[string]uint64{"dstAddr": macToUint(dstMAC), "port": uint64(egressHostPort)}, 0)
			e.applyOrLog(&res, conn, entry, err, "myTunnel_exact", last)
		} else {
			res.Failed++
		}
	}

	return res
}

func (e *Engine) applyOrLog(res *Result, conn TableReaderWriter, entry schema.TableEntry, buildErr error, table, switchName string) {
	if buildErr != nil {
		e.log.Warn("build tunnel entry failed", "switch", switchName, "table", table, "error", buildErr)
		res.Failed++
		return
	}
	if err := e.Upsert(conn, table, entry); err != nil {
		e.log.Warn("install tunnel entry failed", "switch", switchName, "table", table, "error", err)
		res.Failed++
		return
	}
	res.Installed++
}

func uintBytes(v uint64) []byte {
	b, _ := schema.EncodeUint(v, 32)
	return b
}

// InstallBothDirections materializes the two tunnels (one each
// direction) required for an unordered host pair, per §3's tunnel
// invariant.
func (e *Engine) InstallBothDirections(eps TunnelEndpoint, p *plan.Plan, srcPath, dstPath []string, srcIP, dstIP [4]byte, srcMAC, dstMAC [6]byte, srcHostPort, dstHostPort uint32) (Result, Result) {
	forward := e.InstallTunnel(eps, srcPath, plan.TunnelID(intPath(srcPath)), dstIP, dstMAC, dstHostPort)
	reverse := e.InstallTunnel(eps, dstPath, plan.TunnelID(intPath(dstPath)), srcIP, srcMAC, srcHostPort)
	return forward, reverse
}

// intPath strips the "s" switch-name prefix convention to recover the
// numeric ids InstallTunnel's tunnel-id encoding requires.
func intPath(path []string) []int {
	out := make([]int, 0, len(path))
	for _, sw := range path {
		n := 0
		for _, c := range sw {
			if c >= '0' && c <= '9' {
				n = n*10 + int(c-'0')
			}
		}
		out = append(out, n)
	}
	return out
}
