// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fabricctl/controller/internal/plan"
)

// ApplyPlan installs p: WL marking on every switch, one tunnel per entry
// in p.Routes, and classifier entries on the declared weak-learner
// switches, and publishes p's summary metrics. A host pair's return
// direction is installed only when p carries its own reverse route entry;
// no ARP or ipv4_forward entries are installed along a tunnel's path.
// It replaces whatever plan was previously applied — every
// shared key is re-upserted against the device, never diffed — but the
// replacement itself is logged as a unified diff against the prior plan
// so an operator can see what a configuration upload actually changed.
func (o *Orchestrator) ApplyPlan(p *plan.Plan) {
	if old := o.plan.Load(); old != nil {
		if d := diffPlans(old, p); d != "" {
			o.log.Info("applying new plan", "diff", d)
		}
	}

	o.plan.Store(p)
	o.proc.SetPlan(p)

	o.reg.PlanNodesDeployed.Set(float64(p.Metrics.NumNodesDeployed))
	o.reg.PlanAvgPathWeight.Set(p.Metrics.AveragePathWeight)
	o.reg.PlanPercentCovered.Set(p.Metrics.PercentageCovered)

	o.installWLMarking(p)
	o.installRoutes(p)
	o.installClassifiers(p)
}

// diffPlans renders a unified diff between two plans' canonical JSON
// forms. Marshal failures yield no diff rather than an error: this is a
// logging aid, not a correctness path.
func diffPlans(a, b *plan.Plan) string {
	aJSON, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return ""
	}
	bJSON, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(aJSON)),
		B:        difflib.SplitLines(string(bJSON)),
		FromFile: "previous",
		ToFile:   "incoming",
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

func (o *Orchestrator) installWLMarking(p *plan.Plan) {
	wl := make(map[int]struct{}, len(p.WLNodes))
	for _, id := range p.WLNodes {
		wl[id] = struct{}{}
	}

	colorIndex := 1
	for _, sw := range o.cfg.Switches {
		conn, ok := o.Conn(sw.Name)
		if !ok {
			continue
		}
		_, isWL := wl[sw.SwitchID]
		res := o.engine.InstallWLMarking(conn, sw.Name, isWL, colorIndex)
		if isWL {
			colorIndex++
		}
		if !res.OK() {
			o.log.Warn("WL marking had failures", "switch", sw.Name, "failed", res.Failed)
		}
	}
}

// installRoutes installs one tunnel per entry in p.Routes. routes is keyed
// "<hostA>,<hostB>" and each path is installed toward hostB. A pair's
// reverse direction is installed only if the plan has its own
// "<hostB>,<hostA>" entry, handled like any other entry; a one-sided
// route is installed without a return path.
func (o *Orchestrator) installRoutes(p *plan.Plan) {
	for pairKey, switchIDPath := range p.Routes {
		_, hostB, ok := splitPair(pairKey)
		if !ok {
			continue
		}

		dstHost, ok := o.topo.Hosts[hostB]
		if !ok {
			o.log.Warn("route references unknown host", "host", hostB)
			continue
		}

		path := o.switchNamePath(switchIDPath)
		if len(path) == 0 {
			continue
		}

		dstMAC, ok := parseMAC6(dstHost.MAC)
		if !ok {
			o.log.Warn("route destination host has unparseable MAC", "host", hostB, "mac", dstHost.MAC)
			continue
		}
		dstIP, ok := parseIP4(dstHost.IP)
		if !ok {
			o.log.Warn("route destination host has unparseable IP", "host", hostB, "ip", dstHost.IP)
			continue
		}

		tunnelID := plan.TunnelID(switchIDPath)
		res := o.engine.InstallTunnel(o, path, tunnelID, dstIP, dstMAC, uint32(dstHost.Port))
		if !res.OK() {
			o.log.Warn("tunnel install had failures", "pair", pairKey, "failed", res.Failed)
		}
	}
}

func (o *Orchestrator) installClassifiers(p *plan.Plan) {
	for switchName, entries := range p.TableEntries {
		name := switchName
		if id, err := parseSwitchID(switchName); err == nil {
			if resolved, ok := o.cfg.SwitchByID(id); ok {
				name = resolved
			}
		}
		conn, ok := o.Conn(name)
		if !ok {
			continue
		}
		res := o.engine.InstallClassifierEntries(conn, entries)
		if !res.OK() {
			o.log.Warn("classifier entry install had failures", "switch", name, "failed", res.Failed)
		}
	}
}

func (o *Orchestrator) switchNamePath(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := o.cfg.SwitchByID(id)
		if !ok {
			o.log.Warn("route references undeclared switch id", "switch_id", id)
			return nil
		}
		out = append(out, name)
	}
	return out
}

func splitPair(key string) (a, b string, ok bool) {
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func parseSwitchID(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotNumeric
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
