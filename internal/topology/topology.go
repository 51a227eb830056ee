// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package topology parses the declared fabric topology and derives the
// lookup maps the rest of the controller needs: switch adjacency, each
// switch's host port, and host MAC/IP.
package topology

import (
	"sort"

	"github.com/fabricctl/controller/internal/validation"
)

// Host is a host node: a name, the switch/port it is attached to, and its
// L2/L3 addressing.
type Host struct {
	Name   string
	Switch string
	Port   int
	MAC    string
	IP     string
}

// Topology is the immutable, loaded-once fabric graph plus its derived
// maps. Nothing here is mutated after Build.
type Topology struct {
	Switches []string
	// Adjacency is switch -> neighbor switch -> local port.
	Adjacency map[string]map[string]int
	// HostPort is switch -> local port the attached host sits on, if any.
	HostPort map[string]int
	// HostBySwitch is switch -> host name, the inverse of Hosts[name].Switch.
	HostBySwitch map[string]string
	Hosts        map[string]Host

	Warnings []validation.Warning
}

// Builder accumulates hosts and links before Build derives the topology's
// lookup maps and runs consistency validation.
type Builder struct {
	links      []link
	hosts      []Host
	switchSeen map[string]struct{}
}

type link struct {
	a, b         string
	portA, portB int
}

// NewBuilder returns an empty topology builder.
func NewBuilder() *Builder {
	return &Builder{switchSeen: make(map[string]struct{})}
}

// AddLink records an undirected switch-switch link. Both directions are
// derived automatically; callers declare each link once.
func (b *Builder) AddLink(a string, portA int, sw string, portB int) {
	b.links = append(b.links, link{a: a, portA: portA, b: sw, portB: portB})
	b.switchSeen[a] = struct{}{}
	b.switchSeen[sw] = struct{}{}
}

// AddHost attaches host name to sw on port, with the given addressing.
func (b *Builder) AddHost(name, sw string, port int, mac, ip string) {
	b.hosts = append(b.hosts, Host{Name: name, Switch: sw, Port: port, MAC: mac, IP: ip})
	b.switchSeen[sw] = struct{}{}
}

// Build derives adjacency/host-port maps and runs structural validation.
// Validation failures are warnings attached to the result, never a build
// error: the controller proceeds with whatever partial topology it could
// make sense of.
func (b *Builder) Build() *Topology {
	adjacency := make(map[string]map[string]int)
	ensure := func(s string) {
		if adjacency[s] == nil {
			adjacency[s] = make(map[string]int)
		}
	}

	for _, l := range b.links {
		ensure(l.a)
		ensure(l.b)
		adjacency[l.a][l.b] = l.portA
		adjacency[l.b][l.a] = l.portB
	}

	hostPort := make(map[string]int)
	hostBySwitch := make(map[string]string)
	hosts := make(map[string]Host)
	hostCount := make(map[string]int)
	for _, h := range b.hosts {
		hosts[h.Name] = h
		hostPort[h.Switch] = h.Port
		hostBySwitch[h.Switch] = h.Name
		hostCount[h.Switch]++
		ensure(h.Switch)
	}

	switches := make([]string, 0, len(b.switchSeen))
	for s := range b.switchSeen {
		switches = append(switches, s)
	}
	sort.Strings(switches)

	t := &Topology{
		Switches:     switches,
		Adjacency:    adjacency,
		HostPort:     hostPort,
		HostBySwitch: hostBySwitch,
		Hosts:        hosts,
	}

	t.Warnings = append(t.Warnings, validation.CheckReciprocalPorts(adjacency)...)
	t.Warnings = append(t.Warnings, validation.CheckSingleHostPerSwitch(hostCount)...)

	return t
}

// PortTo returns the local port on sw that reaches neighbor, if directly
// linked.
func (t *Topology) PortTo(sw, neighbor string) (int, bool) {
	p, ok := t.Adjacency[sw][neighbor]
	return p, ok
}
