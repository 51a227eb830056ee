// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleengine

import (
	"testing"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	entries []schema.TableEntry
	writes  []Update
}

func (f *fakeConn) ReadTableEntries(tableID uint32) ([]schema.TableEntry, error) {
	var out []schema.TableEntry
	for _, e := range f.entries {
		if e.TableID == tableID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeConn) Write(u Update) error {
	f.writes = append(f.writes, u)
	if u.TableEntry != nil {
		f.entries = append(f.entries, *u.TableEntry)
	}
	return nil
}

func testSchema() *schema.Schema {
	s := schema.New()
	s.RegisterTable(schema.Table{ID: 1, Name: "ipv4_lpm", Fields: map[string]schema.Entry{
		"hdr.ipv4.dstAddr": {ID: 1, Name: "hdr.ipv4.dstAddr", BitWidth: 32, Match: schema.MatchLPM},
	}})
	s.RegisterAction(schema.ActionDef{ID: 1, Name: "ipv4_forward", Params: map[string]schema.Entry{
		"dstAddr": {ID: 1, Name: "dstAddr", BitWidth: 48},
		"port":    {ID: 2, Name: "port", BitWidth: 9},
	}})
	s.RegisterTable(schema.Table{ID: 2, Name: "myTunnel_exact", Fields: map[string]schema.Entry{
		"hdr.myTunnel.dst_id": {ID: 1, Name: "hdr.myTunnel.dst_id", BitWidth: 32, Match: schema.MatchExact},
	}})
	s.RegisterAction(schema.ActionDef{ID: 2, Name: "myTunnel_ingress", Params: map[string]schema.Entry{
		"dst_id": {ID: 1, Name: "dst_id", BitWidth: 32},
	}})
	s.RegisterAction(schema.ActionDef{ID: 3, Name: "myTunnel_forward", Params: map[string]schema.Entry{
		"port": {ID: 1, Name: "port", BitWidth: 9},
	}})
	s.RegisterAction(schema.ActionDef{ID: 4, Name: "myTunnel_egress", Params: map[string]schema.Entry{
		"dstAddr": {ID: 1, Name: "dstAddr", BitWidth: 48},
		"port":    {ID: 2, Name: "port", BitWidth: 9},
	}})
	s.RegisterAction(schema.ActionDef{ID: 5, Name: "drop", Params: map[string]schema.Entry{}})
	s.RegisterTable(schema.Table{ID: 3, Name: "color_table", Fields: map[string]schema.Entry{
		"meta.color": {ID: 1, Name: "meta.color", BitWidth: 32, Match: schema.MatchExact},
	}})
	s.RegisterAction(schema.ActionDef{ID: 6, Name: "set_color", Params: map[string]schema.Entry{
		"color_n": {ID: 1, Name: "color_n", BitWidth: 32},
	}})
	s.RegisterTable(schema.Table{ID: 4, Name: "WL_table", Fields: map[string]schema.Entry{
		"standard_metadata.ingress_port": {ID: 1, Name: "standard_metadata.ingress_port", BitWidth: 9, Match: schema.MatchRange},
	}})
	s.RegisterAction(schema.ActionDef{ID: 7, Name: "WL_action", Params: map[string]schema.Entry{}})
	s.RegisterAction(schema.ActionDef{ID: 8, Name: "no_WL_action", Params: map[string]schema.Entry{}})
	return s
}

func TestUpsert_InsertsWhenAbsent(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	conn := &fakeConn{}
	entry, err := e.schema.BuildTableEntry("ipv4_lpm",
		map[string]schema.MatchValue{"hdr.ipv4.dstAddr": {Kind: schema.MatchLPM, LPMAddr: []byte{10, 0, 1, 1}, LPMPrefixLen: 32}},
		false, "ipv4_forward", map[string]uint64{"dstAddr": 1, "port": 1}, 0)
	require.NoError(t, err)

	require.NoError(t, e.Upsert(conn, "ipv4_lpm", entry))
	require.Len(t, conn.writes, 1)
	assert.Equal(t, Insert, conn.writes[0].Type)
}

func TestUpsert_ModifiesWhenSameCanonicalMatchExists(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	entry, err := e.schema.BuildTableEntry("ipv4_lpm",
		map[string]schema.MatchValue{"hdr.ipv4.dstAddr": {Kind: schema.MatchLPM, LPMAddr: []byte{10, 0, 1, 1}, LPMPrefixLen: 32}},
		false, "ipv4_forward", map[string]uint64{"dstAddr": 1, "port": 1}, 0)
	require.NoError(t, err)

	conn := &fakeConn{entries: []schema.TableEntry{entry}}

	updated, err := e.schema.BuildTableEntry("ipv4_lpm",
		map[string]schema.MatchValue{"hdr.ipv4.dstAddr": {Kind: schema.MatchLPM, LPMAddr: []byte{10, 0, 1, 1}, LPMPrefixLen: 32}},
		false, "ipv4_forward", map[string]uint64{"dstAddr": 2, "port": 5}, 0)
	require.NoError(t, err)

	require.NoError(t, e.Upsert(conn, "ipv4_lpm", updated))
	require.Len(t, conn.writes, 1)
	assert.Equal(t, Modify, conn.writes[0].Type)
}

func TestInstallForwarding_InstallsEveryRoute(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	conn := &fakeConn{}

	routes := []HostRoute{
		{DstIP: [4]byte{10, 0, 1, 1}, DstMAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01}, OutPort: 1},
		{DstIP: [4]byte{10, 0, 1, 2}, DstMAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x02}, OutPort: 2},
	}
	res := e.InstallForwarding(conn, routes)
	assert.Equal(t, 2, res.Installed)
	assert.True(t, res.OK())
}

type fakeEndpoints struct {
	conns map[string]TableReaderWriter
	ports map[string]map[string]int
}

func (f *fakeEndpoints) Conn(name string) (TableReaderWriter, bool) {
	c, ok := f.conns[name]
	return c, ok
}

func (f *fakeEndpoints) PortTo(sw, neighbor string) (int, bool) {
	p, ok := f.ports[sw][neighbor]
	return p, ok
}

func TestInstallTunnel_ProgramsIngressTransitEgress(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	eps := &fakeEndpoints{
		conns: map[string]TableReaderWriter{
			"s1": &fakeConn{}, "s2": &fakeConn{}, "s3": &fakeConn{},
		},
		ports: map[string]map[string]int{
			"s2": {"s3": 2},
		},
	}

	res := e.InstallTunnel(eps, []string{"s1", "s2", "s3"}, 123,
		[4]byte{10, 0, 1, 4}, [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x04}, 1)

	assert.True(t, res.OK())
	assert.Equal(t, 3, res.Installed)
}

func TestInstallReactiveBlock_PlanMismatch(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	p := &plan.Plan{Routes: map[string][]int{"1,4": {1, 2, 3, 4}}}
	eps := &fakeEndpoints{conns: map[string]TableReaderWriter{}}

	err := e.InstallReactiveBlock(eps, p, func(id int) string { return "s" }, 9999)
	require.Error(t, err)
}

func TestInstallReactiveBlock_InstallsDropAtIngress(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	p := &plan.Plan{Routes: map[string][]int{"1,4": {1, 2, 3, 4}}}
	conn := &fakeConn{}
	eps := &fakeEndpoints{conns: map[string]TableReaderWriter{"s1": conn}}

	err := e.InstallReactiveBlock(eps, p, func(id int) string { return "s1" }, 1234)
	require.NoError(t, err)
	require.Len(t, conn.writes, 1)
}

func TestInstallWLMarking_WLSwitchGetsColorAndAction(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	conn := &fakeConn{}
	res := e.InstallWLMarking(conn, "s3", true, 1)
	assert.True(t, res.OK())
	assert.Equal(t, 2, res.Installed)
}

func TestInstallClassifierEntries_MismatchedCountFails(t *testing.T) {
	e := New(testSchema(), logging.New(logging.DefaultConfig()))
	s := e.schema
	s.RegisterTable(schema.Table{ID: 5, Name: "level0", Fields: map[string]schema.Entry{
		"meta.node_id":     {ID: 1, Name: "meta.node_id", BitWidth: 32, Match: schema.MatchExact},
		"meta.prevFeature": {ID: 2, Name: "meta.prevFeature", BitWidth: 32, Match: schema.MatchExact},
		"meta.isTrue":      {ID: 3, Name: "meta.isTrue", BitWidth: 32, Match: schema.MatchExact},
	}})
	s.RegisterAction(schema.ActionDef{ID: 9, Name: "NoAction", Params: map[string]schema.Entry{}})

	conn := &fakeConn{}
	res := e.InstallClassifierEntries(conn, []plan.ClassifierEntry{
		{Table: "level0", Action: "NoAction", MatchFieldValues: []int{1, 2}, ActionParamValues: nil},
	})
	assert.Equal(t, 1, res.Failed)
}
