// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package arplearn

import (
	"net"
	"testing"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/testutil"
	"github.com/fabricctl/controller/internal/topology"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildARPRequest(t *testing.T, srcMAC, dstMAC net.HardwareAddr, senderIP, targetIP net.IP) []byte {
	t.Helper()
	eth := layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: senderIP.To4(),
		DstHwAddress:      dstMAC,
		DstProtAddress:    targetIP.To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, &eth, &arp))
	return buf.Bytes()
}

func TestParseFrame_BroadcastARP(t *testing.T) {
	src, _ := net.ParseMAC("00:00:00:00:00:01")
	dst, _ := net.ParseMAC("ff:ff:ff:ff:ff:ff")
	raw := buildARPRequest(t, src, dst, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"))

	f, err := ParseFrame(raw, 1)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", f.DstMAC)
	require.NotNil(t, f.ARP)
	assert.Equal(t, "10.0.0.1", f.ARP.SenderIP)
}

func TestParseFrame_IgnoresOtherEtherTypes(t *testing.T) {
	src, _ := net.ParseMAC("00:00:00:00:00:01")
	dst, _ := net.ParseMAC("00:00:00:00:00:02")
	eth := layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeLLC}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, &eth, gopacket.Payload{0x01, 0x02}))

	f, err := ParseFrame(buf.Bytes(), 1)
	require.NoError(t, err)
	assert.Nil(t, f)
}

type fakeEndpoint struct {
	entries    []schema.TableEntry
	writes     []ruleengine.Update
	packetsOut []schema.PacketOut
	mcUpdates  []schema.MulticastGroupEntry
}

func (f *fakeEndpoint) ReadTableEntries(tableID uint32) ([]schema.TableEntry, error) {
	var out []schema.TableEntry
	for _, e := range f.entries {
		if e.TableID == tableID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEndpoint) Write(u ruleengine.Update) error {
	f.writes = append(f.writes, u)
	if u.TableEntry != nil {
		f.entries = append(f.entries, *u.TableEntry)
	}
	return nil
}

func (f *fakeEndpoint) PacketOut(po schema.PacketOut) error {
	f.packetsOut = append(f.packetsOut, po)
	return nil
}

func (f *fakeEndpoint) UpdateMulticastGroup(groupID uint32, replicas []schema.Replica) error {
	f.mcUpdates = append(f.mcUpdates, schema.MulticastGroupEntry{GroupID: groupID, Replicas: replicas})
	return nil
}

func testSchema() *schema.Schema {
	s := schema.New()
	s.RegisterTable(schema.Table{ID: 10, Name: "arp_exact", Fields: map[string]schema.Entry{
		"standard_metadata.ingress_port": {ID: 1, Name: "standard_metadata.ingress_port", BitWidth: 9, Match: schema.MatchExact},
		"hdr.ethernet.dstAddr":           {ID: 2, Name: "hdr.ethernet.dstAddr", BitWidth: 48, Match: schema.MatchExact},
		"hdr.ethernet.srcAddr":           {ID: 3, Name: "hdr.ethernet.srcAddr", BitWidth: 48, Match: schema.MatchExact},
	}})
	s.RegisterAction(schema.ActionDef{ID: 10, Name: "arp_reply", Params: map[string]schema.Entry{
		"port": {ID: 1, Name: "port", BitWidth: 9},
	}})
	s.RegisterAction(schema.ActionDef{ID: 11, Name: "flooding", Params: map[string]schema.Entry{}})
	s.RegisterTable(schema.Table{ID: 1, Name: "ipv4_lpm", Fields: map[string]schema.Entry{
		"hdr.ipv4.dstAddr": {ID: 1, Name: "hdr.ipv4.dstAddr", BitWidth: 32, Match: schema.MatchLPM},
	}})
	s.RegisterAction(schema.ActionDef{ID: 1, Name: "ipv4_forward", Params: map[string]schema.Entry{
		"dstAddr": {ID: 1, Name: "dstAddr", BitWidth: 48},
		"port":    {ID: 2, Name: "port", BitWidth: 9},
	}})
	return s
}

func TestHandlePacketIn_BroadcastFloodsOncePerIngressPortSrc(t *testing.T) {
	engine := ruleengine.New(testSchema(), logging.New(logging.DefaultConfig()))
	l := New(engine, logging.New(logging.DefaultConfig()))
	conn := &fakeEndpoint{}
	top := testutil.SampleTopology()
	tree, err := topology.BuildSpanningTree(top)
	require.NoError(t, err)

	src, _ := net.ParseMAC("00:00:00:00:00:01")
	dst, _ := net.ParseMAC("ff:ff:ff:ff:ff:ff")
	raw := buildARPRequest(t, src, dst, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"))

	require.NoError(t, l.HandlePacketIn(conn, "s1", 1, raw, tree, top))
	require.NoError(t, l.HandlePacketIn(conn, "s1", 1, raw, tree, top))

	assert.Len(t, conn.mcUpdates, 1)
	assert.Len(t, conn.writes, 1)
	assert.Len(t, conn.packetsOut, 2)
}

func TestHandlePacketIn_DirectedInstallsReplyOncePortKnown(t *testing.T) {
	engine := ruleengine.New(testSchema(), logging.New(logging.DefaultConfig()))
	l := New(engine, logging.New(logging.DefaultConfig()))
	conn := &fakeEndpoint{}
	top := testutil.SampleTopology()
	tree, err := topology.BuildSpanningTree(top)
	require.NoError(t, err)

	macA, _ := net.ParseMAC("00:00:00:00:00:0a")
	macB, _ := net.ParseMAC("00:00:00:00:00:0b")

	learnB := buildARPRequest(t, macB, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, net.ParseIP("10.0.0.2"), net.ParseIP("10.0.0.1"))
	require.NoError(t, l.HandlePacketIn(conn, "s1", 2, learnB, tree, top))

	directed := buildARPRequest(t, macA, macB, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"))
	require.NoError(t, l.HandlePacketIn(conn, "s1", 1, directed, tree, top))

	var replies int
	for _, w := range conn.writes {
		if w.TableEntry != nil && w.TableEntry.TableID == 10 {
			replies++
		}
	}
	assert.GreaterOrEqual(t, replies, 1)
}
