// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/switchsession"
	"github.com/fabricctl/controller/internal/topology"
)

// BuildTopology derives the fabric topology from the declared links and
// hosts, the shape topology.Builder expects.
func (c *Config) BuildTopology() *topology.Topology {
	b := topology.NewBuilder()
	for _, l := range c.Links {
		b.AddLink(l.SwitchA, l.PortA, l.SwitchB, l.PortB)
	}
	for _, h := range c.Hosts {
		b.AddHost(h.Name, h.Switch, h.Port, h.MAC, h.IP)
	}
	return b.Build()
}

// SwitchSessionConfigs returns one switchsession.Config per declared
// switch, in declaration order.
func (c *Config) SwitchSessionConfigs() []switchsession.Config {
	out := make([]switchsession.Config, 0, len(c.Switches))
	for _, sw := range c.Switches {
		out = append(out, switchsession.Config{
			SwitchName:        sw.Name,
			SocketPath:        sw.SocketPath,
			StreamSocketPath:  sw.StreamSocketPath,
			Host:              sw.Host,
			DialTimeout:       sw.dialTimeout(),
			InboundQueueDepth: sw.InboundQueueDepth,
		})
	}
	return out
}

// WeakLearnerSwitches returns the names of switches marked weak_learner,
// the set the classifier-entry upload targets.
func (c *Config) WeakLearnerSwitches() []string {
	var out []string
	for _, sw := range c.Switches {
		if sw.WeakLearner {
			out = append(out, sw.Name)
		}
	}
	return out
}

// SwitchID resolves a switch name to its declared integer id, the form
// the deployment plan's routes and tunnel-id encoding use.
func (c *Config) SwitchID(name string) (int, bool) {
	for _, sw := range c.Switches {
		if sw.Name == name {
			return sw.SwitchID, true
		}
	}
	return 0, false
}

// SwitchByID resolves a declared switch id back to its name, the
// inverse of SwitchID. Used to turn a plan route's leading switch id
// into the switch name the rule engine and switch sessions key on.
func (c *Config) SwitchByID(id int) (string, bool) {
	for _, sw := range c.Switches {
		if sw.SwitchID == id {
			return sw.Name, true
		}
	}
	return "", false
}

// BuildSchema registers every declared table, action, and digest into a
// fresh schema.Schema. Returns nil, nil if no schema block is declared
// (the caller is then expected to supply one out of band).
func (c *Config) BuildSchema() (*schema.Schema, error) {
	if c.Schema == nil {
		return nil, nil
	}

	s := schema.New()
	for _, t := range c.Schema.Tables {
		fields := make(map[string]schema.Entry, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = schema.Entry{
				ID:       uint32(f.ID),
				Name:     f.Name,
				BitWidth: f.BitWidth,
				Match:    matchKind(f.Match),
			}
		}
		s.RegisterTable(schema.Table{ID: uint32(t.ID), Name: t.Name, Fields: fields})
	}

	for _, a := range c.Schema.Actions {
		params := make(map[string]schema.Entry, len(a.Params))
		for _, p := range a.Params {
			params[p.Name] = schema.Entry{ID: uint32(p.ID), Name: p.Name, BitWidth: p.BitWidth}
		}
		s.RegisterAction(schema.ActionDef{ID: uint32(a.ID), Name: a.Name, Params: params})
	}

	for _, d := range c.Schema.Digests {
		s.RegisterDigest(d.Name, uint32(d.ID))
	}

	return s, nil
}

func matchKind(name string) schema.MatchKind {
	switch name {
	case "lpm":
		return schema.MatchLPM
	case "ternary":
		return schema.MatchTernary
	case "range":
		return schema.MatchRange
	default:
		return schema.MatchExact
	}
}
