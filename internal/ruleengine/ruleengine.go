// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ruleengine installs match/action entries on a switch session as
// idempotent upserts: read what's there, canonicalize it, and issue a
// MODIFY when an entry with the same canonical match exists, an INSERT
// otherwise.
package ruleengine

import (
	"strconv"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/switchsession"
)

// TableReaderWriter is the slice of Session a rule engine needs: reading
// back current entries and writing a single update.
type TableReaderWriter interface {
	ReadTableEntries(tableID uint32) ([]schema.TableEntry, error)
	Write(update switchsession.Update) error
}

// Update and UpdateType alias switchsession's wire types directly, so any
// *switchsession.Session satisfies TableReaderWriter without an adapter.
type Update = switchsession.Update
type UpdateType = switchsession.UpdateType

const (
	Insert = switchsession.Insert
	Modify = switchsession.Modify
	Delete = switchsession.Delete
)

// Engine installs entries against a device schema, diffing against
// current state before every write.
type Engine struct {
	schema *schema.Schema
	log    *logging.Logger
}

// New constructs an Engine bound to s's device schema.
func New(s *schema.Schema, log *logging.Logger) *Engine {
	return &Engine{schema: s, log: log}
}

// Schema returns the device schema this engine resolves tables, actions,
// and field encodings against.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Result summarizes one batch installer's outcome: the device state may
// be partial if individual entries failed, but every failure was logged
// and the batch ran to completion.
type Result struct {
	Installed int
	Failed    int
}

// OK reports whether every entry in the batch installed cleanly.
func (r Result) OK() bool { return r.Failed == 0 }

// canonicalSignature renders a table entry's match fields into a
// comparable string, keyed by field id, using the same canonicalization
// rule the schema package defines for raw match bytes.
func canonicalSignature(table string, sch *schema.Schema, entry schema.TableEntry) string {
	sig := ""
	for _, m := range entry.Match {
		name, err := sch.MatchFieldName(table, m.FieldID)
		if err != nil {
			name = strconv.FormatUint(uint64(m.FieldID), 10)
		}
		sig += name + "=" + canonicalizeMatchValue(m.Value, name) + ";"
	}
	return sig
}

func canonicalizeMatchValue(v schema.MatchValue, fieldName string) string {
	switch v.Kind {
	case schema.MatchExact:
		return schema.CanonicalizeBytes(v.Exact, fieldName)
	case schema.MatchLPM:
		return schema.CanonicalizeBytes(v.LPMAddr, fieldName)
	case schema.MatchTernary:
		return schema.CanonicalizeBytes(v.TernaryValue, fieldName)
	case schema.MatchRange:
		return schema.CanonicalizeBytes(v.RangeLow, fieldName) + ".." + schema.CanonicalizeBytes(v.RangeHigh, fieldName)
	default:
		return ""
	}
}

// Upsert installs entry into table: if an entry with the same canonical
// match signature already exists, it issues MODIFY; otherwise INSERT.
// Both the current read and the write are allowed to fail independently;
// a transport failure on either is returned to the caller, who logs and
// continues with the next entry per the batch-installer failure policy.
func (e *Engine) Upsert(conn TableReaderWriter, table string, entry schema.TableEntry) error {
	desired := canonicalSignature(table, e.schema, entry)

	current, err := conn.ReadTableEntries(entry.TableID)
	if err != nil {
		return err
	}

	updateType := Insert
	for _, existing := range current {
		if canonicalSignature(table, e.schema, existing) == desired {
			updateType = Modify
			break
		}
	}

	return conn.Write(Update{Type: updateType, TableEntry: &entry})
}
