// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package orchestrator

import (
	"time"

	"github.com/fabricctl/controller/internal/errors"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/switchsession"
)

// nextInboundTimeout bounds each poll of a switch's inbound queue. A
// timeout is not an error: the dispatcher loops back around to check
// for shutdown and try again.
const nextInboundTimeout = 500 * time.Millisecond

// dispatchLoop is the per-switch goroutine that drains mgr's session
// inbound queue in arrival order, routing packet-ins to ARP learning and
// digest lists to the telemetry processor. One goroutine per switch: no
// cross-switch ordering is implied or required.
func (o *Orchestrator) dispatchLoop(switchName string, mgr *switchsession.Manager) {
	for {
		select {
		case <-o.stopCh:
			return
		default:
		}

		sess := mgr.Session()
		if sess == nil {
			time.Sleep(nextInboundTimeout)
			continue
		}

		msg, err := sess.NextInbound(nextInboundTimeout)
		if err != nil {
			if errors.GetKind(err) == errors.KindTimeout {
				continue
			}
			// Session torn down; the manager will reopen it.
			time.Sleep(nextInboundTimeout)
			continue
		}

		switch msg.Kind {
		case switchsession.InboundPacketIn:
			o.handlePacketIn(switchName, msg)
		case switchsession.InboundDigestList:
			o.handleDigestList(switchName, msg)
		}
	}
}

func (o *Orchestrator) handlePacketIn(switchName string, msg switchsession.InboundMessage) {
	if msg.PacketIn == nil {
		return
	}
	ep, ok := o.arpEndpoint(switchName)
	if !ok {
		return
	}
	if err := o.learner.HandlePacketIn(ep, switchName, int(msg.PacketIn.IngressPort), msg.PacketIn.Payload, o.tree, o.topo); err != nil {
		o.log.Warn("packet-in handling failed", "switch", switchName, "error", err)
	}
}

func (o *Orchestrator) handleDigestList(switchName string, msg switchsession.InboundMessage) {
	if msg.DigestList == nil {
		return
	}
	o.proc.HandleDigestList(switchName, msg.DigestList.Data, msg.ReceivedAt, o, o.switchNamer)

	o.mu.RLock()
	mgr, ok := o.managers[switchName]
	o.mu.RUnlock()
	if !ok {
		return
	}
	sess := mgr.Session()
	if sess == nil {
		return
	}
	ack := schema.DigestListAck{DigestID: msg.DigestList.DigestID, ListID: msg.DigestList.ListID}
	if err := sess.AckDigestList(ack); err != nil {
		o.log.Warn("digest ack failed", "switch", switchName, "error", err)
	}
}

// switchNamer resolves a plan switch id to the declared switch name, the
// form the rule engine and session managers key on.
func (o *Orchestrator) switchNamer(id int) string {
	name, _ := o.cfg.SwitchByID(id)
	return name
}
