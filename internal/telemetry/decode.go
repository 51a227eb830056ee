// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package telemetry consumes per-flow digest records streamed off the
// switch sessions, derives sending-rate/throughput/overhead metrics,
// publishes them, and triggers a reactive block when a record reports a
// malicious flow.
package telemetry

import (
	"strconv"

	"github.com/fabricctl/controller/internal/errors"
)

// digestFieldWidths is the byte width of each of the digest struct's 17
// ordered members, matching the dataplane's fixed-width bitstring layout.
var digestFieldWidths = []int{
	4, // tunnel_id
	2, // in_port
	4, // switch_time_ns
	2, // queue_depth
	4, // interarrival_time_ns
	2, // packet_length_bytes
	4, // queue_time_ns
	8, // digest_timestamp_ns
	4, // byte_count
	4, // packet_count
	1, // is_wl
	1, // is_malicious
	2, // src_port
	2, // dst_port
	4, // src_ip
	4, // dst_ip
	1, // protocol
}

// Record is one decoded digest entry.
type Record struct {
	TunnelID          int
	InPort            int
	SwitchTimeNs       uint64
	QueueDepth        int
	InterarrivalNs     uint64
	PacketLengthBytes int
	QueueTimeNs        uint64
	DigestTimestampNs  uint64
	ByteCount         uint64
	PacketCount       uint64
	IsWL              bool
	IsMalicious       bool
	SrcPort           int
	DstPort           int
	SrcIP             [4]byte
	DstIP             [4]byte
	Protocol          string
}

func beUint(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}

// DecodeRecord parses one raw digest struct (the concatenation of its 17
// fixed-width fields, big-endian) into a Record.
func DecodeRecord(raw []byte) (Record, error) {
	total := 0
	for _, w := range digestFieldWidths {
		total += w
	}
	if len(raw) < total {
		return Record{}, errors.Errorf(errors.KindEncodeError, "digest record too short: got %d bytes, want %d", len(raw), total)
	}

	off := 0
	next := func(w int) []byte {
		b := raw[off : off+w]
		off += w
		return b
	}

	r := Record{}
	r.TunnelID = int(beUint(next(digestFieldWidths[0])))
	r.InPort = int(beUint(next(digestFieldWidths[1])))
	r.SwitchTimeNs = beUint(next(digestFieldWidths[2]))
	r.QueueDepth = int(beUint(next(digestFieldWidths[3])))
	r.InterarrivalNs = beUint(next(digestFieldWidths[4]))
	r.PacketLengthBytes = int(beUint(next(digestFieldWidths[5])))
	r.QueueTimeNs = beUint(next(digestFieldWidths[6]))
	r.DigestTimestampNs = beUint(next(digestFieldWidths[7]))
	r.ByteCount = beUint(next(digestFieldWidths[8]))
	r.PacketCount = beUint(next(digestFieldWidths[9]))
	r.IsWL = beUint(next(digestFieldWidths[10])) == 1
	r.IsMalicious = beUint(next(digestFieldWidths[11])) == 1
	r.SrcPort = int(beUint(next(digestFieldWidths[12])))
	r.DstPort = int(beUint(next(digestFieldWidths[13])))
	copy(r.SrcIP[:], next(digestFieldWidths[14]))
	copy(r.DstIP[:], next(digestFieldWidths[15]))

	protoNum := beUint(next(digestFieldWidths[16]))
	switch protoNum {
	case 6:
		r.Protocol = "TCP"
	case 17:
		r.Protocol = "UDP"
	default:
		r.Protocol = strconv.FormatUint(protoNum, 10)
	}

	return r, nil
}
