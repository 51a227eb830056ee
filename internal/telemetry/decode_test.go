// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecordBytes() []byte {
	buf := make([]byte, 0, 45)
	put := func(v uint64, width int) {
		b := make([]byte, width)
		switch width {
		case 1:
			b[0] = byte(v)
		case 2:
			binary.BigEndian.PutUint16(b, uint16(v))
		case 4:
			binary.BigEndian.PutUint32(b, uint32(v))
		case 8:
			binary.BigEndian.PutUint64(b, v)
		}
		buf = append(buf, b...)
	}
	put(124, 4)          // tunnel_id
	put(1, 2)             // in_port
	put(5000, 4)          // switch_time_ns
	put(3, 2)             // queue_depth
	put(10_000_000, 4)    // interarrival_ns
	put(512, 2)           // packet_length_bytes
	put(2000, 4)          // queue_time_ns
	put(1_700_000_000, 8) // digest_timestamp_ns
	put(40960, 4)         // byte_count
	put(80, 4)            // packet_count
	put(0, 1)             // is_wl
	put(1, 1)             // is_malicious
	put(5000, 2)          // src_port
	put(80, 2)            // dst_port
	buf = append(buf, 10, 0, 1, 1) // src_ip
	buf = append(buf, 10, 0, 1, 4) // dst_ip
	put(6, 1)                      // protocol
	return buf
}

func TestDecodeRecord_AllFields(t *testing.T) {
	raw := sampleRecordBytes()
	rec, err := DecodeRecord(raw)
	require.NoError(t, err)

	assert.Equal(t, 124, rec.TunnelID)
	assert.Equal(t, 1, rec.InPort)
	assert.Equal(t, uint64(5000), rec.SwitchTimeNs)
	assert.Equal(t, 3, rec.QueueDepth)
	assert.Equal(t, uint64(10_000_000), rec.InterarrivalNs)
	assert.Equal(t, 512, rec.PacketLengthBytes)
	assert.False(t, rec.IsWL)
	assert.True(t, rec.IsMalicious)
	assert.Equal(t, [4]byte{10, 0, 1, 1}, rec.SrcIP)
	assert.Equal(t, [4]byte{10, 0, 1, 4}, rec.DstIP)
	assert.Equal(t, "TCP", rec.Protocol)
}

func TestDecodeRecord_TooShort(t *testing.T) {
	_, err := DecodeRecord([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRecord_UnknownProtocolIsNumeric(t *testing.T) {
	raw := sampleRecordBytes()
	raw[len(raw)-1] = 1 // ICMP
	rec, err := DecodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Protocol)
}
