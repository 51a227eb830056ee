// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package plan models the normalized configuration-upload payload: the
// deployment/coloring decision, the per-host-pair tunnel routes, and the
// classifier table entries for weak-learner switches. It is the
// authoritative description of "what rules should currently be
// installed", held in memory by the orchestrator (it is not written to
// disk) and read by both the rule engine
// (to program it) and the digest processor (to resolve a tunnel id back
// to its ingress switch for reactive blocking).
package plan

import "strconv"

// InstanceInfo carries the solver's own bookkeeping about the deployment
// it produced.
type InstanceInfo struct {
	Nodes        int     `json:"nodes"`
	Colors       int     `json:"colors"`
	RunTime      float64 `json:"run_time"`
	SolutionCost float64 `json:"solution_cost"`
}

// Metrics summarizes deployment coverage and cost.
type Metrics struct {
	NumNodesDeployed  int     `json:"num_nodes_deployed"`
	AveragePathWeight float64 `json:"average_path_weight"`
	PercentageCovered float64 `json:"percentage_covered"`
}

// ClassifierEntry is one decision-tree table entry for a weak-learner
// switch: match-field and action-param values are positional, matched up
// against the table/action's declared field order by the caller.
type ClassifierEntry struct {
	Table            string `json:"table"`
	Action           string `json:"action"`
	MatchFieldValues []int  `json:"match_fields"`
	ActionParamValues []int `json:"action_params"`
}

// Plan is the normalized deployment plan.
type Plan struct {
	Instance     InstanceInfo                `json:"instance_info"`
	Deployment   map[string]int              `json:"deployment"`
	Routes       map[string][]int            `json:"routes"`
	Metrics      Metrics                     `json:"metrics"`
	WLNodes      []int                       `json:"wl_nodes"`
	TableEntries map[string][]ClassifierEntry `json:"table_entries"`
}

// TunnelID encodes a switch-id path as the base-10 concatenation of its
// members, e.g. [1, 3, 5] -> 135.
func TunnelID(path []int) int {
	s := ""
	for _, id := range path {
		s += strconv.Itoa(id)
	}
	n, _ := strconv.Atoi(s)
	return n
}

// ResolveIngress scans the plan's routes for the path whose encoded
// tunnel id equals tunnelID, returning that path's first switch id. Used
// by the digest processor's reactive-block step: a malicious flow's
// tunnel id must be traced back to where a drop rule belongs.
func (p *Plan) ResolveIngress(tunnelID int) (ingressSwitchID int, path []int, ok bool) {
	for _, route := range p.Routes {
		if TunnelID(route) == tunnelID && len(route) > 0 {
			return route[0], route, true
		}
	}
	return 0, nil, false
}
