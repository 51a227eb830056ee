// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package arplearn reacts to packet-in events carrying broadcast/ARP
// traffic: it learns (switch, MAC) -> ingress port associations and
// installs exact-match forwarding rules so the dataplane handles the
// next packet between the same pair without another trip to the
// controller.
package arplearn

import (
	"net"
	"sync"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/netutil"
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Broadcast is the all-ones MAC used for ARP requests and flooding.
var Broadcast = netutil.FormatMAC(netutil.Broadcast)

// Frame is a parsed Ethernet frame relevant to ARP learning.
type Frame struct {
	SrcMAC      string
	DstMAC      string
	EtherType   layers.EthernetType
	IngressPort int
	ARP         *ARPInfo
}

// ARPInfo is the subset of an ARP payload the learner cares about.
type ARPInfo struct {
	SenderMAC string
	SenderIP  string
	TargetMAC string
	TargetIP  string
}

// ParseFrame decodes raw into a Frame. It returns nil, nil for frames
// that are neither ARP nor IPv4 (EtherType 0x0806/0x0800), since only
// those trigger learning.
func ParseFrame(raw []byte, ingressPort int) (*Frame, error) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, nil
	}
	eth := ethLayer.(*layers.Ethernet)

	if eth.EthernetType != layers.EthernetTypeARP && eth.EthernetType != layers.EthernetTypeIPv4 {
		return nil, nil
	}

	f := &Frame{
		SrcMAC:      eth.SrcMAC.String(),
		DstMAC:      eth.DstMAC.String(),
		EtherType:   eth.EthernetType,
		IngressPort: ingressPort,
	}

	if arpLayer := pkt.Layer(layers.LayerTypeARP); arpLayer != nil {
		a := arpLayer.(*layers.ARP)
		f.ARP = &ARPInfo{
			SenderMAC: net.HardwareAddr(a.SourceHwAddress).String(),
			SenderIP:  net.IP(a.SourceProtAddress).String(),
			TargetMAC: net.HardwareAddr(a.DstHwAddress).String(),
			TargetIP:  net.IP(a.DstProtAddress).String(),
		}
	}

	return f, nil
}

// portKey is the (ingress port, src mac) pair a flood/reply is tracked
// once per, mirroring the original's per-direction dedup.
type portKey struct {
	port int
	mac  string
}

// Learner holds per-switch learned port/MAC state and the already
// installed (ingress port, src mac) -> dst mac directions, so repeated
// broadcast or reply traffic for the same pair is a no-op.
type Learner struct {
	engine *ruleengine.Engine
	log    *logging.Logger

	mu       sync.Mutex
	portMAC  map[string]map[string]int          // switch -> mac -> port
	directed map[string]map[portKey]map[string]struct{} // switch -> (port,srcMAC) -> {dstMAC...}
}

// New constructs a Learner that installs entries via engine.
func New(engine *ruleengine.Engine, log *logging.Logger) *Learner {
	return &Learner{
		engine:   engine,
		log:      log,
		portMAC:  make(map[string]map[string]int),
		directed: make(map[string]map[portKey]map[string]struct{}),
	}
}

func (l *Learner) learn(switchName, mac string, port int) {
	m, ok := l.portMAC[switchName]
	if !ok {
		m = make(map[string]int)
		l.portMAC[switchName] = m
	}
	if _, known := m[mac]; !known {
		m[mac] = port
	}
}

func (l *Learner) portFor(switchName, mac string) (int, bool) {
	p, ok := l.portMAC[switchName][mac]
	return p, ok
}

func (l *Learner) alreadyHandled(switchName string, key portKey, dstMAC string) bool {
	dirs, ok := l.directed[switchName]
	if !ok {
		return false
	}
	seen, ok := dirs[key]
	if !ok {
		return false
	}
	_, ok = seen[dstMAC]
	return ok
}

func (l *Learner) markHandled(switchName string, key portKey, dstMAC string) {
	dirs, ok := l.directed[switchName]
	if !ok {
		dirs = make(map[portKey]map[string]struct{})
		l.directed[switchName] = dirs
	}
	seen, ok := dirs[key]
	if !ok {
		seen = make(map[string]struct{})
		dirs[key] = seen
	}
	seen[dstMAC] = struct{}{}
}

// Endpoint resolves the live session and multicast capability for one
// switch. Supplied by the orchestrator.
type Endpoint interface {
	ruleengine.TableReaderWriter
	PacketOut(schema.PacketOut) error
	UpdateMulticastGroup(groupID uint32, replicas []schema.Replica) error
}

// macBytes parses "aa:bb:cc:dd:ee:ff" into 6 raw bytes.
func macBytes(mac string) ([6]byte, bool) {
	hw, err := netutil.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return [6]byte{}, false
	}
	var out [6]byte
	copy(out[:], hw)
	return out, true
}

func ipBytes(ip string) ([4]byte, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return [4]byte{}, false
	}
	v4 := parsed.To4()
	if v4 == nil {
		return [4]byte{}, false
	}
	var out [4]byte
	copy(out[:], v4)
	return out, true
}
