// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package schema

import (
	"testing"

	"github.com/fabricctl/controller/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() *Schema {
	s := New()
	s.RegisterTable(Table{
		ID:   1,
		Name: "ipv4_lpm",
		Fields: map[string]Entry{
			"hdr.ipv4.dstAddr": {ID: 1, Name: "hdr.ipv4.dstAddr", BitWidth: 32, Match: MatchLPM},
		},
	})
	s.RegisterAction(ActionDef{
		ID:   1,
		Name: "ipv4_forward",
		Params: map[string]Entry{
			"port": {ID: 1, Name: "port", BitWidth: 9},
		},
	})
	s.RegisterDigest("congestion_digest_t", 1)
	return s
}

func TestLookup_Table(t *testing.T) {
	s := sampleSchema()
	e, err := s.Lookup(KindTable, "", "ipv4_lpm")
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.ID)
}

func TestLookup_UnknownTableIsSchemaUnknown(t *testing.T) {
	s := sampleSchema()
	_, err := s.Lookup(KindTable, "", "no_such_table")
	assert.Equal(t, errors.KindSchemaUnknown, errors.GetKind(err))
}

func TestLookup_MatchFieldScopedToTable(t *testing.T) {
	s := sampleSchema()
	e, err := s.Lookup(KindMatchField, "ipv4_lpm", "hdr.ipv4.dstAddr")
	require.NoError(t, err)
	assert.Equal(t, MatchLPM, e.Match)
}

func TestLookupByID_RoundTrips(t *testing.T) {
	s := sampleSchema()
	name, err := s.LookupByID(KindTable, 1)
	require.NoError(t, err)
	assert.Equal(t, "ipv4_lpm", name)
}

func TestCanonicalizeBytes_IPv4Field(t *testing.T) {
	assert.Equal(t, "10.0.1.4", CanonicalizeBytes([]byte{10, 0, 1, 4}, "hdr.ipv4.dstAddr"))
}

func TestCanonicalizeBytes_NonIPv4NamedFourBytes(t *testing.T) {
	// not matching the ipv4 heuristic: decimal integer fallback
	assert.Equal(t, "167772420", CanonicalizeBytes([]byte{10, 0, 1, 4}, "node_id"))
}

func TestCanonicalizeBytes_MAC(t *testing.T) {
	mac := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01}
	assert.Equal(t, "aa:bb:cc:dd:ee:01", CanonicalizeBytes(mac, "hdr.ethernet.dstAddr"))
}

func TestCanonicalizeString_Lowercases(t *testing.T) {
	assert.Equal(t, "abc", CanonicalizeString("ABC"))
}

func TestEncodeUint_FitsInWidth(t *testing.T) {
	b, err := EncodeUint(9, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x09}, b)
}

func TestEncodeUint_TooWideIsEncodeError(t *testing.T) {
	_, err := EncodeUint(1000, 8)
	assert.Equal(t, errors.KindEncodeError, errors.GetKind(err))
}

func TestBuildTableEntry_LPM(t *testing.T) {
	s := sampleSchema()
	entry, err := s.BuildTableEntry("ipv4_lpm", map[string]MatchValue{
		"hdr.ipv4.dstAddr": {Kind: MatchLPM, LPMAddr: []byte{10, 0, 1, 4}, LPMPrefixLen: 32},
	}, false, "ipv4_forward", map[string]uint64{"port": 2}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, entry.TableID)
	assert.EqualValues(t, 1, entry.ActionID)
	require.Len(t, entry.ActionParams, 1)
}

func TestBuildTableEntry_UnknownFieldIsSchemaUnknown(t *testing.T) {
	s := sampleSchema()
	_, err := s.BuildTableEntry("ipv4_lpm", map[string]MatchValue{
		"nope": {Kind: MatchLPM},
	}, false, "", nil, 0)
	assert.Equal(t, errors.KindSchemaUnknown, errors.GetKind(err))
}

func TestBuildDigestEntry_FixedConfig(t *testing.T) {
	s := sampleSchema()
	d, err := s.BuildDigestEntry("congestion_digest_t")
	require.NoError(t, err)
	assert.EqualValues(t, 100_000_000, d.MaxTimeoutNs)
	assert.EqualValues(t, 10, d.MaxListSize)
	assert.EqualValues(t, 500_000_000, d.AckTimeoutNs)
}
