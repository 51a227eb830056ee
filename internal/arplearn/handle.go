// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package arplearn

import (
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/topology"
)

// HandlePacketIn is the single entry point the orchestrator calls for
// every packet-in carrying an IPv4 or ARP EtherType. switchName and
// ingressPort identify where the packet arrived; tree and t give the
// multicast replica set for a flood.
func (l *Learner) HandlePacketIn(conn Endpoint, switchName string, ingressPort int, raw []byte, tree *topology.Tree, t *topology.Topology) error {
	frame, err := ParseFrame(raw, ingressPort)
	if err != nil {
		return err
	}
	if frame == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.learn(switchName, frame.SrcMAC, ingressPort)

	key := portKey{port: ingressPort, mac: frame.SrcMAC}

	if frame.DstMAC == Broadcast {
		if !l.alreadyHandled(switchName, key, Broadcast) {
			replicas := topology.MulticastReplicas(t, tree, switchName, ingressPort)
			if err := conn.UpdateMulticastGroup(1, toReplicas(replicas)); err != nil {
				l.log.Warn("multicast group update failed", "switch", switchName, "error", err)
			}
			if err := l.installARPFlood(conn, switchName, ingressPort, Broadcast, frame.SrcMAC); err != nil {
				l.log.Warn("arp flood rule install failed", "switch", switchName, "error", err)
			}
			l.markHandled(switchName, key, Broadcast)
		}
		return conn.PacketOut(schema.PacketOut{Payload: raw, Metadata: map[uint32][]byte{1: {0, 0}, 2: {0, 1}}})
	}

	if !l.alreadyHandled(switchName, key, frame.DstMAC) {
		dstPort, known := l.portFor(switchName, frame.DstMAC)
		if !known {
			return nil
		}
		if err := l.installARPReply(conn, switchName, ingressPort, frame.DstMAC, frame.SrcMAC, dstPort); err != nil {
			l.log.Warn("arp reply rule install failed", "switch", switchName, "error", err)
		}
		if frame.ARP != nil {
			if ip, ok := ipBytes(frame.ARP.TargetIP); ok {
				if mac, ok := macBytes(frame.DstMAC); ok {
					engine := l.engine
					engine.InstallForwarding(conn, []ruleengine.HostRoute{{DstIP: ip, DstMAC: mac, OutPort: uint32(dstPort)}})
				}
			}
		}
		l.markHandled(switchName, key, frame.DstMAC)
	}

	reverseKey := portKey{port: l.portMAC[switchName][frame.DstMAC], mac: frame.DstMAC}
	if !l.alreadyHandled(switchName, reverseKey, frame.SrcMAC) {
		dstPort := reverseKey.port
		if err := l.installARPReply(conn, switchName, dstPort, frame.SrcMAC, frame.DstMAC, ingressPort); err != nil {
			l.log.Warn("arp reply rule install failed", "switch", switchName, "error", err)
		}
		if frame.ARP != nil {
			if ip, ok := ipBytes(frame.ARP.SenderIP); ok {
				if mac, ok := macBytes(frame.SrcMAC); ok {
					l.engine.InstallForwarding(conn, []ruleengine.HostRoute{{DstIP: ip, DstMAC: mac, OutPort: uint32(ingressPort)}})
				}
			}
		}
		l.markHandled(switchName, reverseKey, frame.SrcMAC)
	}

	return nil
}

func (l *Learner) installARPReply(conn ruleengine.TableReaderWriter, switchName string, inPort int, dstEth, srcEth string, outPort int) error {
	dst, ok := macBytes(dstEth)
	if !ok {
		return nil
	}
	src, ok := macBytes(srcEth)
	if !ok {
		return nil
	}
	entry, err := l.engine.Schema().BuildTableEntry("arp_exact",
		map[string]schema.MatchValue{
			"standard_metadata.ingress_port": {Kind: schema.MatchExact, Exact: uintBytes9(uint64(inPort))},
			"hdr.ethernet.dstAddr":           {Kind: schema.MatchExact, Exact: dst[:]},
			"hdr.ethernet.srcAddr":           {Kind: schema.MatchExact, Exact: src[:]},
		},
		false, "arp_reply", map[string]uint64{"port": uint64(outPort)}, 0)
	if err != nil {
		return err
	}
	return l.engine.Upsert(conn, "arp_exact", entry)
}

func (l *Learner) installARPFlood(conn ruleengine.TableReaderWriter, switchName string, inPort int, dstEth, srcEth string) error {
	dst, ok := macBytes(dstEth)
	if !ok {
		return nil
	}
	src, ok := macBytes(srcEth)
	if !ok {
		return nil
	}
	entry, err := l.engine.Schema().BuildTableEntry("arp_exact",
		map[string]schema.MatchValue{
			"standard_metadata.ingress_port": {Kind: schema.MatchExact, Exact: uintBytes9(uint64(inPort))},
			"hdr.ethernet.dstAddr":           {Kind: schema.MatchExact, Exact: dst[:]},
			"hdr.ethernet.srcAddr":           {Kind: schema.MatchExact, Exact: src[:]},
		},
		false, "flooding", nil, 0)
	if err != nil {
		return err
	}
	return l.engine.Upsert(conn, "arp_exact", entry)
}

func toReplicas(ports []int) []schema.Replica {
	out := make([]schema.Replica, 0, len(ports))
	for _, p := range ports {
		out = append(out, schema.Replica{Port: uint32(p), Instance: 0})
	}
	return out
}

func uintBytes9(v uint64) []byte {
	b, _ := schema.EncodeUint(v, 9)
	return b
}
