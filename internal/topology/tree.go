// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package topology

import (
	"fmt"
	"sort"

	"github.com/fabricctl/controller/internal/errors"
	"github.com/fabricctl/controller/internal/validation"
)

// Tree is a spanning tree over the switch-only projection of a Topology:
// switch -> neighbor switch -> local port, symmetric (every edge appears
// in both directions).
type Tree struct {
	Root     string
	Edges    map[string]map[string]int
	Warnings []validation.Warning
}

type edge struct {
	parent, child string
	port          int
}

// BuildSpanningTree runs a deterministic BFS over the switch-only
// projection of t, rooted at the lexicographically smallest switch name.
// The frontier is a FIFO queue and each switch's neighbors are enqueued
// sorted by switch name, so the same topology always yields the same tree
// regardless of map iteration order. Every switch the tree does not reach
// is reported as a consistency warning.
func BuildSpanningTree(t *Topology) (*Tree, error) {
	if len(t.Switches) == 0 {
		return nil, fmt.Errorf("topology: no switches to build a spanning tree from")
	}

	root := t.Switches[0]
	for _, s := range t.Switches {
		if s < root {
			root = s
		}
	}

	tree := &Tree{Root: root, Edges: make(map[string]map[string]int)}
	for _, s := range t.Switches {
		tree.Edges[s] = make(map[string]int)
	}

	visited := map[string]struct{}{root: {}}
	frontier := neighborEdges(t, root)

	for len(frontier) > 0 {
		e := frontier[0]
		frontier = frontier[1:]

		if _, seen := visited[e.child]; seen {
			continue
		}

		childPort, ok := t.Adjacency[e.child][e.parent]
		if !ok {
			tree.Warnings = append(tree.Warnings, validation.Warning{
				Kind: errors.KindConsistency,
				Message: fmt.Sprintf(
					"link %s->%s (port %d) has no reverse entry %s->%s; dropping edge from spanning tree",
					e.parent, e.child, e.port, e.child, e.parent),
			})
			continue
		}

		tree.Edges[e.parent][e.child] = e.port
		tree.Edges[e.child][e.parent] = childPort
		visited[e.child] = struct{}{}

		frontier = append(frontier, neighborEdges(t, e.child)...)
	}

	tree.Warnings = append(tree.Warnings, validation.CheckReachability(t.Switches, visited)...)

	return tree, nil
}

func neighborEdges(t *Topology, sw string) []edge {
	var out []edge
	for neighbor, port := range t.Adjacency[sw] {
		out = append(out, edge{parent: sw, child: neighbor, port: port})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].child < out[j].child })
	return out
}

// MulticastReplicas returns the set of local ports that a packet entering
// sw on ingressPort must be replicated to in order to flood the fabric
// along the spanning tree plus any directly attached host: every tree
// neighbor port, and the switch's host port if it has one, minus the
// ingress port itself.
func MulticastReplicas(t *Topology, tree *Tree, sw string, ingressPort int) []int {
	seen := make(map[int]struct{})
	var ports []int
	add := func(p int) {
		if p == ingressPort {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		ports = append(ports, p)
	}

	for _, port := range tree.Edges[sw] {
		add(port)
	}
	if hp, ok := t.HostPort[sw]; ok {
		add(hp)
	}

	sort.Ints(ports)
	return ports
}
