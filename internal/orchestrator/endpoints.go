// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package orchestrator

import (
	"github.com/fabricctl/controller/internal/arplearn"
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/switchsession"
)

// Conn resolves the open session for switchName, satisfying
// ruleengine.TunnelEndpoint and arplearn's embedded TableReaderWriter
// requirement.
func (o *Orchestrator) Conn(switchName string) (ruleengine.TableReaderWriter, bool) {
	o.mu.RLock()
	mgr, ok := o.managers[switchName]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess := mgr.Session()
	if sess == nil {
		return nil, false
	}
	return sessionEndpoint{sess}, true
}

// PortTo delegates to the loaded topology.
func (o *Orchestrator) PortTo(sw, neighbor string) (int, bool) {
	return o.topo.PortTo(sw, neighbor)
}

// arpEndpoint resolves the arplearn.Endpoint for switchName, or false if
// no session is currently open.
func (o *Orchestrator) arpEndpoint(switchName string) (arplearn.Endpoint, bool) {
	conn, ok := o.Conn(switchName)
	if !ok {
		return nil, false
	}
	return conn.(sessionEndpoint), true
}

// sessionEndpoint adapts a *switchsession.Session to the narrower
// interfaces the rule engine and ARP learner need: ReadTableEntries and
// Write come straight off the session, PacketOut and
// UpdateMulticastGroup translate to the session's SendPacketOut/Write
// primitives.
type sessionEndpoint struct {
	sess *switchsession.Session
}

func (s sessionEndpoint) ReadTableEntries(tableID uint32) ([]schema.TableEntry, error) {
	return s.sess.ReadTableEntries(tableID)
}

func (s sessionEndpoint) Write(u switchsession.Update) error {
	return s.sess.Write(u)
}

func (s sessionEndpoint) PacketOut(po schema.PacketOut) error {
	return s.sess.SendPacketOut(po)
}

func (s sessionEndpoint) UpdateMulticastGroup(groupID uint32, replicas []schema.Replica) error {
	entry := schema.BuildMulticastEntry(groupID, replicas)
	return s.sess.Write(switchsession.Update{Type: switchsession.Modify, Multicast: &entry})
}
