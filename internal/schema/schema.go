// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package schema models the device's match/action schema and builds the
// wire-level entries the rule engine installs: table entries, packet-out
// frames, digest entries, and multicast group entries.
//
// Where the original control library used reflective name synthesis
// (get_<kind>_id / get_<kind>_name, one pair per entity type, invented
// via __getattr__), this package exposes a single typed Lookup built on
// the same name<->id maps.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fabricctl/controller/internal/errors"
)

// Kind identifies a class of named schema entity.
type Kind int

const (
	KindTable Kind = iota
	KindMatchField
	KindAction
	KindActionParam
	KindDigest
	KindCounter
	KindRegister
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindMatchField:
		return "match_field"
	case KindAction:
		return "action"
	case KindActionParam:
		return "action_param"
	case KindDigest:
		return "digest"
	case KindCounter:
		return "counter"
	case KindRegister:
		return "register"
	default:
		return "unknown"
	}
}

// MatchKind is the P4Runtime match type of a field.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchLPM
	MatchTernary
	MatchRange
)

// Entry is a resolved schema entity: its id, bit width (meaningful for
// match fields and action params), and, for match fields, its match kind.
type Entry struct {
	ID       uint32
	Name     string
	BitWidth int
	Match    MatchKind
}

// Table describes one table's declared fields, keyed by field name, plus
// its id.
type Table struct {
	ID     uint32
	Name   string
	Fields map[string]Entry
}

// ActionDef describes one action's declared params, keyed by name.
type ActionDef struct {
	ID     uint32
	Name   string
	Params map[string]Entry
}

// Schema is the full device schema: tables, actions, digests, counters,
// and registers, each addressable by name or id.
type Schema struct {
	tables    map[string]Table
	tablesByID map[uint32]string
	actions   map[string]ActionDef
	actionsByID map[uint32]string
	digests   map[string]uint32
	digestsByID map[uint32]string
	counters  map[string]uint32
	registers map[string]uint32
}

// New constructs an empty schema. Callers populate it via the Register*
// methods, normally from the HCL schema block (see config.BuildSchema).
func New() *Schema {
	return &Schema{
		tables:      make(map[string]Table),
		tablesByID:  make(map[uint32]string),
		actions:     make(map[string]ActionDef),
		actionsByID: make(map[uint32]string),
		digests:     make(map[string]uint32),
		digestsByID: make(map[uint32]string),
		counters:    make(map[string]uint32),
		registers:   make(map[string]uint32),
	}
}

// RegisterTable adds a table definition.
func (s *Schema) RegisterTable(t Table) {
	s.tables[t.Name] = t
	s.tablesByID[t.ID] = t.Name
}

// RegisterAction adds an action definition.
func (s *Schema) RegisterAction(a ActionDef) {
	s.actions[a.Name] = a
	s.actionsByID[a.ID] = a.Name
}

// RegisterDigest adds a digest name/id pair.
func (s *Schema) RegisterDigest(name string, id uint32) {
	s.digests[name] = id
	s.digestsByID[id] = name
}

// RegisterCounter adds a counter name/id pair.
func (s *Schema) RegisterCounter(name string, id uint32) { s.counters[name] = id }

// RegisterRegister adds a register name/id pair.
func (s *Schema) RegisterRegister(name string, id uint32) { s.registers[name] = id }

// Lookup resolves a named entity of kind. table is only consulted for
// KindMatchField and KindActionParam, where it scopes the lookup to a
// specific table/action.
func (s *Schema) Lookup(kind Kind, table string, name string) (Entry, error) {
	switch kind {
	case KindTable:
		t, ok := s.tables[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no table named %q", name)
		}
		return Entry{ID: t.ID, Name: t.Name}, nil

	case KindMatchField:
		t, ok := s.tables[table]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no table named %q", table)
		}
		f, ok := t.Fields[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "table %q has no match field %q", table, name)
		}
		return f, nil

	case KindAction:
		a, ok := s.actions[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no action named %q", name)
		}
		return Entry{ID: a.ID, Name: a.Name}, nil

	case KindActionParam:
		a, ok := s.actions[table]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no action named %q", table)
		}
		p, ok := a.Params[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "action %q has no param %q", table, name)
		}
		return p, nil

	case KindDigest:
		id, ok := s.digests[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no digest named %q", name)
		}
		return Entry{ID: id, Name: name}, nil

	case KindCounter:
		id, ok := s.counters[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no counter named %q", name)
		}
		return Entry{ID: id, Name: name}, nil

	case KindRegister:
		id, ok := s.registers[name]
		if !ok {
			return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "no register named %q", name)
		}
		return Entry{ID: id, Name: name}, nil

	default:
		return Entry{}, errors.Errorf(errors.KindSchemaUnknown, "unknown entity kind %v", kind)
	}
}

// LookupByID resolves the name of an entity given its id; the inverse of
// Lookup for tables, actions and digests. Other kinds are rejected with
// SchemaUnknown; match-field names are resolved by MatchFieldName.
func (s *Schema) LookupByID(kind Kind, id uint32) (string, error) {
	switch kind {
	case KindTable:
		name, ok := s.tablesByID[id]
		if !ok {
			return "", errors.Errorf(errors.KindSchemaUnknown, "no table with id %d", id)
		}
		return name, nil
	case KindAction:
		name, ok := s.actionsByID[id]
		if !ok {
			return "", errors.Errorf(errors.KindSchemaUnknown, "no action with id %d", id)
		}
		return name, nil
	case KindDigest:
		name, ok := s.digestsByID[id]
		if !ok {
			return "", errors.Errorf(errors.KindSchemaUnknown, "no digest with id %d", id)
		}
		return name, nil
	default:
		return "", errors.Errorf(errors.KindSchemaUnknown, "LookupByID unsupported for kind %v", kind)
	}
}

// MatchFieldName resolves a table's match field name given its id. Used
// when decoding entries read back from the device.
func (s *Schema) MatchFieldName(table string, id uint32) (string, error) {
	t, ok := s.tables[table]
	if !ok {
		return "", errors.Errorf(errors.KindSchemaUnknown, "no table named %q", table)
	}
	for name, f := range t.Fields {
		if f.ID == id {
			return name, nil
		}
	}
	return "", errors.Errorf(errors.KindSchemaUnknown, "table %q has no match field with id %d", table, id)
}

// isIPv4FieldName reports whether a match field's name suggests it holds
// an IPv4 address, per the canonicalization heuristic.
func isIPv4FieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, needle := range []string{"ipv4", "dstaddr", "srcaddr", "dst_ip", "src_ip", "ip", "addr"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// CanonicalizeBytes renders a raw match value into the canonical form
// used for upsert equality: dotted-quad for a 4-byte IPv4-named field,
// colon-hex MAC for a 6-byte value, decimal string otherwise.
func CanonicalizeBytes(value []byte, fieldName string) string {
	switch {
	case len(value) == 4 && isIPv4FieldName(fieldName):
		return fmt.Sprintf("%d.%d.%d.%d", value[0], value[1], value[2], value[3])
	case len(value) == 6:
		return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", value[0], value[1], value[2], value[3], value[4], value[5])
	default:
		var n uint64
		for _, b := range value {
			n = n<<8 | uint64(b)
		}
		return strconv.FormatUint(n, 10)
	}
}

// CanonicalizeString lowercases a string match value, per the
// canonicalization rule for string-typed fields.
func CanonicalizeString(value string) string { return strings.ToLower(value) }

// EncodeUint big-endian encodes v into ceil(bitWidth/8) bytes. Returns
// EncodeError if v does not fit.
func EncodeUint(v uint64, bitWidth int) ([]byte, error) {
	n := (bitWidth + 7) / 8
	if n == 0 {
		n = 1
	}
	if bitWidth < 64 && v >= (uint64(1)<<uint(bitWidth)) {
		return nil, errors.Errorf(errors.KindEncodeError, "value %d does not fit in %d bits", v, bitWidth)
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out, nil
}
