// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleengine

import "github.com/fabricctl/controller/internal/schema"

// HostRoute is one destination a switch needs a direct IPv4 forward for.
type HostRoute struct {
	DstIP   [4]byte
	DstMAC  [6]byte
	OutPort uint32
}

// InstallForwarding upserts one LPM /32 ipv4_forward rule per route on
// conn. Each route is independent: a failure on one is logged and the
// batch continues with the rest.
func (e *Engine) InstallForwarding(conn TableReaderWriter, routes []HostRoute) Result {
	var res Result
	for _, r := range routes {
		entry, err := e.schema.BuildTableEntry("ipv4_lpm",
			map[string]schema.MatchValue{
				"hdr.ipv4.dstAddr": {Kind: schema.MatchLPM, LPMAddr: r.DstIP[:], LPMPrefixLen: 32},
			},
			false, "ipv4_forward",
			map[string]uint64{"dstAddr": macToUint(r.DstMAC), "port": uint64(r.OutPort)},
			0,
		)
		if err != nil {
			e.log.Warn("build forwarding entry failed", "dst_ip", r.DstIP, "error", err)
			res.Failed++
			continue
		}
		if err := e.Upsert(conn, "ipv4_lpm", entry); err != nil {
			e.log.Warn("install forwarding entry failed", "dst_ip", r.DstIP, "error", err)
			res.Failed++
			continue
		}
		res.Installed++
	}
	return res
}

func macToUint(mac [6]byte) uint64 {
	var n uint64
	for _, b := range mac {
		n = n<<8 | uint64(b)
	}
	return n
}
