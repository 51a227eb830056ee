// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package switchsession

import (
	"time"

	"github.com/fabricctl/controller/internal/schema"
)

// UpdateType is the kind of table mutation a Write carries.
type UpdateType int

const (
	Insert UpdateType = iota
	Modify
	Delete
)

// Update is one entity mutation sent via Write. Exactly one of the Entry
// fields is populated, matching whichever entity kind this update targets.
type Update struct {
	Type UpdateType

	TableEntry   *schema.TableEntry
	Multicast    *schema.MulticastGroupEntry
	CloneSession *schema.CloneSessionEntry
	Digest       *schema.DigestEntry
}

// ElectionID is the P4Runtime mastership arbitration identifier. The
// fabric always arbitrates with the fixed id (high=0, low=1): single
// controller, no failover contention.
type ElectionID struct {
	High uint64
	Low  uint64
}

// FixedElectionID is the election id every session arbitrates with.
var FixedElectionID = ElectionID{High: 0, Low: 1}

// ArbitrationUpdate is the stream message that establishes mastership.
type ArbitrationUpdate struct {
	DeviceID   uint64
	ElectionID ElectionID
}

// PacketIn is a packet delivered to the controller on the stream channel,
// tagged with the local port it ingressed on.
type PacketIn struct {
	Payload      []byte
	IngressPort  uint32
}

// DigestList is one batch of digest records delivered on the stream
// channel.
type DigestList struct {
	DigestID uint32
	ListID   int64
	Data     [][]byte
}

// InboundKind tags which variant an InboundMessage carries.
type InboundKind int

const (
	InboundPacketIn InboundKind = iota
	InboundDigestList
	InboundArbitration
)

// InboundMessage is a stream-channel message tagged with the wall-clock
// time the controller received it, the basis for the overhead_ns metric.
type InboundMessage struct {
	Kind       InboundKind
	PacketIn   *PacketIn
	DigestList *DigestList
	Arbitration *ArbitrationUpdate
	ReceivedAt time.Time
}

// frameKind tags a streamFrame's payload. It spans both directions of the
// duplex stream (arbitration/packet-out/digest-ack flow controller->device,
// packet-in/digest-list flow device->controller).
type frameKind int

const (
	frameArbitration frameKind = iota
	framePacketIn
	framePacketOut
	frameDigestList
	frameDigestAck
)

// streamFrame is the wire envelope for every value sent over the stream
// connection in either direction: exactly one payload field set,
// distinguished by Kind.
type streamFrame struct {
	Kind        frameKind
	Arbitration *ArbitrationUpdate
	PacketIn    *PacketIn
	PacketOut   *schema.PacketOut
	DigestList  *DigestList
	DigestAck   *schema.DigestListAck
}
