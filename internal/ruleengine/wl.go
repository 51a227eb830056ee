// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleengine

import (
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/schema"
)

// InstallWLMarking programs the color_table/WL_table pair on one switch:
// a designated weak-learner switch gets color colorIndex and WL_action;
// any other switch gets no_WL_action. The caller assigns colorIndex
// sequentially across weak-learner switches, starting at 1.
func (e *Engine) InstallWLMarking(conn TableReaderWriter, switchName string, isWL bool, colorIndex int) Result {
	var res Result

	if isWL {
		entry, err := e.schema.BuildTableEntry("color_table",
			map[string]schema.MatchValue{"meta.color": {Kind: schema.MatchExact, Exact: uintBytes(0)}},
			false, "set_color",
			map[string]uint64{"color_n": uint64(colorIndex)}, 0)
		e.applyOrLog(&res, conn, entry, err, "color_table", switchName)
	}

	action := "no_WL_action"
	if isWL {
		action = "WL_action"
	}
	entry, err := e.schema.BuildTableEntry("WL_table",
		map[string]schema.MatchValue{
			"standard_metadata.ingress_port": {Kind: schema.MatchRange, RangeLow: uintBytes(1), RangeHigh: uintBytes(55)},
		},
		false, action, nil, 1)
	e.applyOrLog(&res, conn, entry, err, "WL_table", switchName)

	return res
}

// ClassifierFieldNames returns the positional match-field names for a
// decision-tree level table, the only classifier table family the
// dataplane schema declares.
func ClassifierFieldNames(table string) []string {
	return []string{"meta.node_id", "meta.prevFeature", "meta.isTrue"}
}

// ClassifierActionParams returns the positional action-param names for a
// classifier action.
func ClassifierActionParams(action string) []string {
	switch action {
	case "CheckFeature":
		return []string{"node_id", "f_inout", "threshold"}
	case "SetClass":
		return []string{"node_id", "class"}
	default:
		return nil
	}
}

// InstallClassifierEntries programs conn's decision-tree tables from the
// plan's per-node entry list. Positional match/action values are zipped
// against the table/action's declared field order.
func (e *Engine) InstallClassifierEntries(conn TableReaderWriter, entries []plan.ClassifierEntry) Result {
	var res Result
	for _, ce := range entries {
		fieldNames := ClassifierFieldNames(ce.Table)
		if len(fieldNames) != len(ce.MatchFieldValues) {
			e.log.Warn("classifier entry match field count mismatch", "table", ce.Table)
			res.Failed++
			continue
		}
		match := make(map[string]schema.MatchValue, len(fieldNames))
		for i, name := range fieldNames {
			match[name] = schema.MatchValue{Kind: schema.MatchExact, Exact: uintBytes(uint64(ce.MatchFieldValues[i]))}
		}

		paramNames := ClassifierActionParams(ce.Action)
		if len(paramNames) != len(ce.ActionParamValues) {
			e.log.Warn("classifier entry action param count mismatch", "action", ce.Action)
			res.Failed++
			continue
		}
		params := make(map[string]uint64, len(paramNames))
		for i, name := range paramNames {
			params[name] = uint64(ce.ActionParamValues[i])
		}

		entry, err := e.schema.BuildTableEntry(ce.Table, match, false, ce.Action, params, 0)
		e.applyOrLog(&res, conn, entry, err, ce.Table, "")
	}
	return res
}
