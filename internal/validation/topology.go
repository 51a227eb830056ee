// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package validation holds structural consistency checks for declared
// topology input. Violations are warnings, not load failures: the
// controller continues with the partial topology it could make sense of.
package validation

import (
	"fmt"
	"sort"

	"github.com/fabricctl/controller/internal/errors"
)

// Link is the minimal shape validation needs from a topology link.
type Link struct {
	NodeA, NodeB string
	PortA, PortB int
}

// Warning is a single consistency problem found in the topology. It is
// always non-fatal: the caller logs it and proceeds.
type Warning struct {
	Kind    errors.Kind
	Message string
}

func (w Warning) String() string { return w.Message }

// CheckReciprocalPorts verifies that for every link A-p->B, B also lists A
// on some port. Links map is keyed by node name, value is neighbor->port.
func CheckReciprocalPorts(adjacency map[string]map[string]int) []Warning {
	var warnings []Warning

	nodes := make([]string, 0, len(adjacency))
	for n := range adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, a := range nodes {
		neighbors := make([]string, 0, len(adjacency[a]))
		for b := range adjacency[a] {
			neighbors = append(neighbors, b)
		}
		sort.Strings(neighbors)

		for _, b := range neighbors {
			if _, ok := adjacency[b][a]; !ok {
				warnings = append(warnings, Warning{
					Kind: errors.KindConsistency,
					Message: fmt.Sprintf(
						"link %s->%s (port %d) has no reverse entry %s->%s",
						a, b, adjacency[a][b], b, a),
				})
			}
		}
	}

	return warnings
}

// CheckReachability warns for every switch in `all` that does not appear as
// a key in `reached` (the set of switches the spanning tree could connect).
func CheckReachability(all []string, reached map[string]struct{}) []Warning {
	var warnings []Warning
	for _, s := range all {
		if _, ok := reached[s]; !ok {
			warnings = append(warnings, Warning{
				Kind:    errors.KindConsistency,
				Message: fmt.Sprintf("switch %s is unreachable from the spanning tree root", s),
			})
		}
	}
	return warnings
}

// CheckSingleHostPerSwitch warns if a switch has more than one host
// attached, a configuration the rule engine's forwarding/tunnel installers
// do not support (one host port per switch, see topology.Topology).
func CheckSingleHostPerSwitch(hostPortCount map[string]int) []Warning {
	var warnings []Warning
	switches := make([]string, 0, len(hostPortCount))
	for s := range hostPortCount {
		switches = append(switches, s)
	}
	sort.Strings(switches)
	for _, s := range switches {
		if hostPortCount[s] > 1 {
			warnings = append(warnings, Warning{
				Kind:    errors.KindConsistency,
				Message: fmt.Sprintf("switch %s has %d hosts attached, only one is kept as its host port", s, hostPortCount[s]),
			})
		}
	}
	return warnings
}
