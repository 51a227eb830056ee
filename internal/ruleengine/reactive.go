// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleengine

import (
	"github.com/fabricctl/controller/internal/errors"
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/schema"
)

// InstallReactiveBlock resolves tunnelID against p's routes to find the
// path's ingress switch, then upserts an exact `tunnel.dst_id=T -> drop`
// rule there. Returns PlanMismatch if no route in p encodes to tunnelID:
// the malicious-flow metric still published, but nothing to block.
func (e *Engine) InstallReactiveBlock(eps TunnelEndpoint, p *plan.Plan, switchNamer func(id int) string, tunnelID int) error {
	ingressID, _, ok := p.ResolveIngress(tunnelID)
	if !ok {
		return errors.Errorf(errors.KindPlanMismatch, "tunnel id %d not found in loaded plan", tunnelID)
	}

	switchName := switchNamer(ingressID)
	conn, ok := eps.Conn(switchName)
	if !ok {
		return errors.Errorf(errors.KindTransport, "no open session for switch %s", switchName)
	}

	entry, err := e.schema.BuildTableEntry("myTunnel_exact",
		map[string]schema.MatchValue{"hdr.myTunnel.dst_id": {Kind: schema.MatchExact, Exact: uintBytes(uint64(tunnelID))}},
		false, "drop", nil, 0)
	if err != nil {
		return err
	}

	return e.Upsert(conn, "myTunnel_exact", entry)
}
