// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package schema

import "github.com/fabricctl/controller/internal/errors"

// MatchValue is a tagged union over the four P4Runtime match kinds. Only
// the field matching Kind is meaningful.
type MatchValue struct {
	Kind MatchKind

	Exact []byte

	LPMAddr      []byte
	LPMPrefixLen int

	TernaryValue []byte
	TernaryMask  []byte

	RangeLow  []byte
	RangeHigh []byte
}

// FieldMatch is an encoded match field ready to ship on the wire: the
// resolved field id plus its encoded MatchValue.
type FieldMatch struct {
	FieldID uint32
	Value   MatchValue
}

// ActionParam is an encoded action parameter: resolved param id plus its
// encoded value.
type ActionParam struct {
	ParamID uint32
	Value   []byte
}

// TableEntry is a fully populated match/action entry ready for Write.
type TableEntry struct {
	TableID         uint32
	Match           []FieldMatch
	Priority        int32
	IsDefaultAction bool
	ActionID        uint32
	ActionParams    []ActionParam
}

// PacketOut is an encoded packet-out: payload plus resolved metadata.
type PacketOut struct {
	Payload  []byte
	Metadata map[uint32][]byte
}

// DigestEntry is a digest subscription with the fixed configuration the
// fabric always uses.
type DigestEntry struct {
	DigestID     uint32
	MaxTimeoutNs uint64
	MaxListSize  uint32
	AckTimeoutNs uint64
}

// DigestListAck acknowledges a received digest list, unblocking the
// device's next delivery for that digest.
type DigestListAck struct {
	DigestID uint32
	ListID   int64
}

// Replica is one egress replication target of a multicast group or clone
// session.
type Replica struct {
	Port     uint32
	Instance uint32
}

// MulticastGroupEntry programs a multicast replication group.
type MulticastGroupEntry struct {
	GroupID  uint32
	Replicas []Replica
}

// CloneSessionEntry programs a clone session, used to mirror traffic to a
// collector port without affecting the ingress packet's own path.
type CloneSessionEntry struct {
	SessionID         uint32
	Replicas          []Replica
	PacketLengthBytes uint32
}

// BuildTableEntry resolves table, its match fields, and its action (if
// any) against s, and encodes each action param to its bit width. Match
// values are used as given: their byte length is not checked against
// the field's bit width. matchFields keys must be declared fields of
// table, with the field's match kind; priority is required
// (non-zero) for any entry containing a ternary or range match.
func (s *Schema) BuildTableEntry(table string, matchFields map[string]MatchValue, defaultAction bool, actionName string, actionParams map[string]uint64, priority int32) (TableEntry, error) {
	t, ok := s.tables[table]
	if !ok {
		return TableEntry{}, errors.Errorf(errors.KindSchemaUnknown, "no table named %q", table)
	}

	entry := TableEntry{TableID: t.ID, IsDefaultAction: defaultAction, Priority: priority}

	needsPriority := false
	for name, mv := range matchFields {
		field, ok := t.Fields[name]
		if !ok {
			return TableEntry{}, errors.Errorf(errors.KindSchemaUnknown, "table %q has no match field %q", table, name)
		}
		if mv.Kind != field.Match {
			return TableEntry{}, errors.Errorf(errors.KindEncodeError, "field %q: match kind mismatch", name)
		}
		if mv.Kind == MatchTernary || mv.Kind == MatchRange {
			needsPriority = true
		}
		entry.Match = append(entry.Match, FieldMatch{FieldID: field.ID, Value: mv})
	}
	if needsPriority && priority == 0 {
		return TableEntry{}, errors.Errorf(errors.KindEncodeError, "table %q: ternary/range match requires a non-zero priority", table)
	}

	if actionName != "" {
		a, ok := s.actions[actionName]
		if !ok {
			return TableEntry{}, errors.Errorf(errors.KindSchemaUnknown, "no action named %q", actionName)
		}
		entry.ActionID = a.ID
		for name, v := range actionParams {
			p, ok := a.Params[name]
			if !ok {
				return TableEntry{}, errors.Errorf(errors.KindSchemaUnknown, "action %q has no param %q", actionName, name)
			}
			encoded, err := EncodeUint(v, p.BitWidth)
			if err != nil {
				return TableEntry{}, err
			}
			entry.ActionParams = append(entry.ActionParams, ActionParam{ParamID: p.ID, Value: encoded})
		}
	}

	return entry, nil
}

// BuildPacketOut resolves metadata ids against s and wraps payload for
// transmission.
func (s *Schema) BuildPacketOut(payload []byte, metadata map[string]uint64, metaBytes map[string][]byte) (PacketOut, error) {
	out := PacketOut{Payload: payload, Metadata: make(map[uint32][]byte, len(metaBytes))}
	for name, raw := range metaBytes {
		id, ok := metadata[name]
		if !ok {
			return PacketOut{}, errors.Errorf(errors.KindSchemaUnknown, "no packet metadata named %q", name)
		}
		out.Metadata[uint32(id)] = raw
	}
	return out, nil
}

// BuildDigestEntry builds a digest subscription for digestName with the
// fabric's fixed delivery configuration.
func (s *Schema) BuildDigestEntry(digestName string) (DigestEntry, error) {
	id, ok := s.digests[digestName]
	if !ok {
		return DigestEntry{}, errors.Errorf(errors.KindSchemaUnknown, "no digest named %q", digestName)
	}
	return DigestEntry{
		DigestID:     id,
		MaxTimeoutNs: 100_000_000,
		MaxListSize:  10,
		AckTimeoutNs: 500_000_000,
	}, nil
}

// BuildMulticastEntry builds a multicast group entry for groupID with the
// given replicas.
func BuildMulticastEntry(groupID uint32, replicas []Replica) MulticastGroupEntry {
	return MulticastGroupEntry{GroupID: groupID, Replicas: replicas}
}

// BuildCloneSessionEntry builds a clone session entry. Class of service is
// always 0: the only value the device's replication engine supports.
func BuildCloneSessionEntry(sessionID uint32, replicas []Replica, packetLengthBytes uint32) CloneSessionEntry {
	return CloneSessionEntry{SessionID: sessionID, Replicas: replicas, PacketLengthBytes: packetLengthBytes}
}
